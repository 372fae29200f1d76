package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type auditStoreStub struct {
	entries    []*models.AuditEntry
	accessLogs []*models.AccessLogEntry
	createErr  error
}

func (s *auditStoreStub) CreateEntry(ctx context.Context, entry *models.AuditEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *auditStoreStub) ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	result := make([]models.AuditEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, *entry)
	}
	return result, len(result), nil
}

func (s *auditStoreStub) CreateAccessLog(ctx context.Context, entry *models.AccessLogEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.accessLogs = append(s.accessLogs, entry)
	return nil
}

func (s *auditStoreStub) ListAccessLogs(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLogEntry, int, error) {
	result := make([]models.AccessLogEntry, 0, len(s.accessLogs))
	for _, entry := range s.accessLogs {
		result = append(result, *entry)
	}
	return result, len(result), nil
}

type analyzerStub struct {
	seen []*models.AccessLogEntry
}

func (a *analyzerStub) Analyze(ctx context.Context, entry *models.AccessLogEntry) {
	a.seen = append(a.seen, entry)
}

func TestLogActionDefaultsResultAndTimestamp(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, nil, nil)

	entry, err := svc.LogAction(context.Background(), &models.AuditEntry{
		ActorID:   "user-1",
		ActorKind: models.ActorKindEmployee,
		Action:    "client.update",
		Resource:  "client",
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditResultSuccess, entry.Result)
	assert.False(t, entry.OccurredAt.IsZero())
	require.Len(t, store.entries, 1)
}

func TestLogActionRequiresActorActionResource(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, nil, nil)

	_, err := svc.LogAction(context.Background(), &models.AuditEntry{
		Action:   "client.update",
		Resource: "client",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, store.entries)
}

func TestLogAccessFeedsDetector(t *testing.T) {
	store := &auditStoreStub{}
	analyzer := &analyzerStub{}
	svc := NewAuditService(store, analyzer, nil)

	entry, err := svc.LogAccess(context.Background(), &models.AccessLogEntry{
		UserID:    "user-1",
		Action:    models.AccessActionLogin,
		IPAddress: "10.0.0.1",
		Success:   false,
	})
	require.NoError(t, err)
	require.Len(t, analyzer.seen, 1)
	assert.Same(t, entry, analyzer.seen[0])
	require.Len(t, store.accessLogs, 1)
}

func TestLogAccessStoreFailureSkipsDetector(t *testing.T) {
	store := &auditStoreStub{createErr: fmt.Errorf("connection reset")}
	analyzer := &analyzerStub{}
	svc := NewAuditService(store, analyzer, nil)

	_, err := svc.LogAccess(context.Background(), &models.AccessLogEntry{
		UserID:    "user-1",
		Action:    models.AccessActionLogin,
		IPAddress: "10.0.0.1",
	})
	require.Error(t, err)
	assert.Empty(t, analyzer.seen)
}

func TestLogAccessWithoutDetectorStillPersists(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, nil, nil)

	_, err := svc.LogAccess(context.Background(), &models.AccessLogEntry{
		UserID:     "user-1",
		Action:     models.AccessActionLogout,
		IPAddress:  "10.0.0.1",
		Success:    true,
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, store.accessLogs, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), store.accessLogs[0].OccurredAt)
}

func TestAttachDetectorBindsLate(t *testing.T) {
	store := &auditStoreStub{}
	analyzer := &analyzerStub{}
	svc := NewAuditService(store, nil, nil)
	svc.AttachDetector(analyzer)

	_, err := svc.LogAccess(context.Background(), &models.AccessLogEntry{
		UserID:    "user-1",
		Action:    models.AccessActionLogin,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Len(t, analyzer.seen, 1)
}

func TestListEntriesNormalizesPagination(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, nil, nil)

	_, pagination, err := svc.ListEntries(context.Background(), models.AuditFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
}
