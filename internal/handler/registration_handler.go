package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pyrogramic/test-event-website/internal/models"
	"github.com/Pyrogramic/test-event-website/internal/service"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
	"github.com/Pyrogramic/test-event-website/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.Registration, error)
	List(ctx context.Context, scope models.Scope, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
}

// RegistrationHandler serves public submissions and the review listing.
type RegistrationHandler struct {
	service registrationService
	metrics *service.MetricsService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(svc registrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{service: svc, metrics: metrics}
}

// Register godoc
// @Summary Submit a registration
// @Description Admit a student registration for a published event
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	reg, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.recordAdmission(err)
		response.Error(c, err)
		return
	}

	h.recordAdmission(nil)
	response.Created(c, reg)
}

// List godoc
// @Summary List registrations for review
// @Description Returns registrations visible to the reviewer, optionally
// @Description filtered by event and status and grouped by department
// @Tags Registrations
// @Produce json
// @Param event_id query string false "Event ID"
// @Param status query string false "Registration status"
// @Param grouped query bool false "Group results by department"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.RegistrationFilter{
		EventID: strings.TrimSpace(c.Query("event_id")),
		Status:  models.RegistrationStatus(strings.TrimSpace(c.Query("status"))),
	}

	regs, err := h.service.List(c.Request.Context(), claims.Scope(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("grouped") == "true" {
		response.JSON(c, http.StatusOK, gin.H{
			"all":           regs,
			"by_department": service.GroupByDepartment(regs),
		}, nil)
		return
	}
	response.JSON(c, http.StatusOK, regs, nil)
}

func (h *RegistrationHandler) recordAdmission(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "admitted"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	h.metrics.RecordAdmission(outcome)
}
