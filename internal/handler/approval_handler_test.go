package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/motorpool-api/internal/middleware"
	"github.com/fleetworks/motorpool-api/internal/models"
)

func approvalTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestApprovalHandlerProcessRejectsUnknownAction(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodPost, "/requests/42/approval", []byte(`{"action":"escalate"}`))
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 2, Role: models.RoleApprover})

	handler.Process(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerProcessRejectsUnknownStage(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodPost, "/requests/42/approval", []byte(`{"action":"approve","stage":"finance"}`))
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 2, Role: models.RoleApprover})

	handler.Process(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerProcessBadIDParam(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodPost, "/requests/abc/approval", []byte(`{"action":"approve"}`))
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 2, Role: models.RoleApprover})

	handler.Process(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerProcessRequiresAuth(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodPost, "/requests/42/approval", []byte(`{"action":"approve"}`))
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	handler.Process(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApprovalHandlerCancelRequiresReason(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodPost, "/requests/42/cancel", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 1, Role: models.RoleRequester})

	handler.Cancel(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerCheckConflictsRejectsUnknownResource(t *testing.T) {
	handler := NewApprovalHandler(nil, nil)
	c, w := approvalTestContext(t, http.MethodGet, "/conflicts?resource=trailer&resource_id=1&start=2026-03-09T08:00:00Z&end=2026-03-09T12:00:00Z", nil)

	handler.CheckConflicts(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
