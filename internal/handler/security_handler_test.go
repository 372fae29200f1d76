package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/middleware"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type securityServiceStub struct {
	recorded   *models.SecurityEventEntry
	resolvedBy string
	resolveErr error
}

func (s *securityServiceStub) RecordEvent(ctx context.Context, event *models.SecurityEventEntry) (*models.SecurityEventEntry, error) {
	event.ID = "evt-1"
	s.recorded = event
	return event, nil
}

func (s *securityServiceStub) GetEvent(ctx context.Context, id string) (*models.SecurityEventEntry, error) {
	return &models.SecurityEventEntry{ID: id}, nil
}

func (s *securityServiceStub) ListEvents(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 50}, nil
}

func (s *securityServiceStub) ResolveEvent(ctx context.Context, id, resolvedBy, note, ipAddress, userAgent string) (*models.SecurityEventEntry, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	s.resolvedBy = resolvedBy
	return &models.SecurityEventEntry{ID: id, Resolved: true, ResolvedBy: &resolvedBy}, nil
}

func testContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req, err := http.NewRequest(method, path, &reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, recorder
}

func TestRecordSecurityEventReturnsCreated(t *testing.T) {
	stub := &securityServiceStub{}
	h := NewSecurityHandler(stub)

	c, recorder := testContext(t, http.MethodPost, "/security/events", map[string]interface{}{
		"type":        string(models.EventSuspiciousLogin),
		"severity":    string(models.SeverityMedium),
		"ip_address":  "10.0.0.1",
		"description": "login from unseen network",
	})
	h.Record(c)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	require.NotNil(t, stub.recorded)
	assert.Equal(t, models.EventSuspiciousLogin, stub.recorded.Type)
}

func TestRecordSecurityEventRejectsMalformedPayload(t *testing.T) {
	h := NewSecurityHandler(&securityServiceStub{})

	c, recorder := testContext(t, http.MethodPost, "/security/events", map[string]interface{}{
		"severity": string(models.SeverityMedium),
	})
	h.Record(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestResolveSecurityEventRequiresClaims(t *testing.T) {
	stub := &securityServiceStub{}
	h := NewSecurityHandler(stub)

	c, recorder := testContext(t, http.MethodPost, "/security/events/evt-1/resolve", nil)
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	h.Resolve(c)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, stub.resolvedBy)
}

func TestResolveSecurityEventUsesAuthenticatedUser(t *testing.T) {
	stub := &securityServiceStub{}
	h := NewSecurityHandler(stub)

	c, recorder := testContext(t, http.MethodPost, "/security/events/evt-1/resolve", map[string]interface{}{
		"note": "false positive",
	})
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h.Resolve(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "admin-1", stub.resolvedBy)
}

func TestResolveSecurityEventMapsConflict(t *testing.T) {
	stub := &securityServiceStub{resolveErr: appErrors.ErrAlreadyResolved}
	h := NewSecurityHandler(stub)

	c, recorder := testContext(t, http.MethodPost, "/security/events/evt-1/resolve", nil)
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h.Resolve(c)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}
