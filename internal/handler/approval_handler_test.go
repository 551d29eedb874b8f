package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Pyrogramic/test-event-website/internal/middleware"
	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type fakeApprovalSrv struct {
	transitionResp *models.RegistrationDetail
	transitionErr  error
	resendResp     *models.RegistrationDetail
	resendErr      error
	lastID         string
	lastScope      models.Scope
	lastTarget     models.RegistrationStatus
}

func (f *fakeApprovalSrv) Transition(_ context.Context, id string, scope models.Scope, target models.RegistrationStatus) (*models.RegistrationDetail, error) {
	f.lastID = id
	f.lastScope = scope
	f.lastTarget = target
	return f.transitionResp, f.transitionErr
}

func (f *fakeApprovalSrv) ResendNotification(_ context.Context, id string, scope models.Scope) (*models.RegistrationDetail, error) {
	f.lastID = id
	f.lastScope = scope
	return f.resendResp, f.resendErr
}

func decisionContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	method := http.MethodPatch
	var reader *strings.Reader
	if body == "" {
		method = http.MethodPost
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, "/admin/registrations/reg-1/status", reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c, rec
}

func TestUpdateStatusApproves(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeApprovalSrv{transitionResp: &models.RegistrationDetail{
		Registration: models.Registration{ID: "reg-1", Status: models.RegistrationStatusApproved},
	}}
	handler := NewApprovalHandler(srv, nil)

	c, rec := decisionContext(t, `{"status":"approved"}`)
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reg-1", srv.lastID)
	assert.Equal(t, models.RegistrationStatusApproved, srv.lastTarget)
	assert.Equal(t, "admin-1", srv.lastScope.ActorID())
}

func TestUpdateStatusRequiresStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&fakeApprovalSrv{}, nil)

	c, rec := decisionContext(t, `{}`)
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusMapsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&fakeApprovalSrv{transitionErr: appErrors.ErrConflict}, nil)

	c, rec := decisionContext(t, `{"status":"approved"}`)
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusMapsAccessDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&fakeApprovalSrv{transitionErr: appErrors.ErrAccessDenied}, nil)

	c, rec := decisionContext(t, `{"status":"declined"}`)
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResendReturnsDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeApprovalSrv{resendResp: &models.RegistrationDetail{
		Registration: models.Registration{ID: "reg-1", EmailSent: true},
	}}
	handler := NewApprovalHandler(srv, nil)

	c, rec := decisionContext(t, "")
	handler.Resend(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reg-1", srv.lastID)
}

func TestResendSurfacesDeliveryFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&fakeApprovalSrv{
		resendErr: appErrors.Clone(appErrors.ErrInternal, "failed to deliver notification"),
	}, nil)

	c, rec := decisionContext(t, "")
	handler.Resend(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
