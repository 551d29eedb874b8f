package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pyrogramic/test-event-website/internal/models"
	"github.com/Pyrogramic/test-event-website/internal/service"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
	"github.com/Pyrogramic/test-event-website/pkg/response"
)

type approvalService interface {
	Transition(ctx context.Context, id string, scope models.Scope, target models.RegistrationStatus) (*models.RegistrationDetail, error)
	ResendNotification(ctx context.Context, id string, scope models.Scope) (*models.RegistrationDetail, error)
}

// ApprovalHandler exposes the review decision endpoints.
type ApprovalHandler struct {
	service approvalService
	metrics *service.MetricsService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(svc approvalService, metrics *service.MetricsService) *ApprovalHandler {
	return &ApprovalHandler{service: svc, metrics: metrics}
}

// UpdateStatus godoc
// @Summary Decide a registration
// @Description Approve or decline a pending registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body object{status=string} true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrations/{id}/status [patch]
func (h *ApprovalHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status models.RegistrationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status is required"))
		return
	}

	detail, err := h.service.Transition(c.Request.Context(), c.Param("id"), claims.Scope(), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTransition(string(payload.Status))
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Resend godoc
// @Summary Resend an approval notification
// @Description Re-deliver the approval email for an approved registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrations/{id}/resend [post]
func (h *ApprovalHandler) Resend(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.ResendNotification(c.Request.Context(), c.Param("id"), claims.Scope())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}
