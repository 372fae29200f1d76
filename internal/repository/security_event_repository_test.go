package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

func TestCreateEventPersistsAttachedActions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	mock.ExpectExec("INSERT INTO security_event_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO security_actions").WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.SecurityEventEntry{
		Type:        models.EventBruteForceAttack,
		Severity:    models.SeverityCritical,
		IPAddress:   "10.0.0.1",
		Description: "repeated failures",
		Actions: []models.SecurityAction{
			{Action: models.ActionTemporaryAccountLock, Automated: true},
		},
	}
	err := repo.Create(context.Background(), event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, event.ID, event.Actions[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveFirstResolutionWins(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	resolvedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE security_event_entries").
		WithArgs("evt-1", "admin-1", resolvedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Resolve(context.Background(), "evt-1", "admin-1", resolvedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSecondCallReportsAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	resolvedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE security_event_entries").
		WithArgs("evt-1", "admin-2", resolvedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Resolve(context.Background(), "evt-1", "admin-2", resolvedAt)
	require.ErrorIs(t, err, appErrors.ErrAlreadyResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveUnknownEventReportsNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	resolvedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE security_event_entries").
		WithArgs("missing", "admin-1", resolvedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Resolve(context.Background(), "missing", "admin-1", resolvedAt)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEventsFiltersResolved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	resolved := false
	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM security_event_entries WHERE resolved = \$1`).
		WithArgs(resolved).
		WillReturnRows(countRows)

	now := time.Now().UTC()
	listRows := sqlmock.NewRows([]string{
		"id", "type", "severity", "user_id", "ip_address", "user_agent", "description", "details",
		"resolved", "resolved_by", "resolved_at", "occurred_at",
	}).AddRow("evt-1", string(models.EventMultipleFailedAttempts), string(models.SeverityHigh), nil,
		"10.0.0.1", nil, "burst", nil, false, nil, nil, now)
	mock.ExpectQuery(`FROM security_event_entries WHERE resolved = \$1 ORDER BY occurred_at DESC`).
		WithArgs(resolved).
		WillReturnRows(listRows)

	events, total, err := repo.List(context.Background(), models.SecurityEventFilter{Resolved: &resolved})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventMultipleFailedAttempts, events[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveBetweenIgnoresAlreadyArchivedRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSecurityEventRepository(db)

	from := time.Now().UTC().AddDate(0, 0, -180)
	to := time.Now().UTC().AddDate(0, 0, -30)
	mock.ExpectExec("INSERT INTO security_event_entries_archive").
		WithArgs(from, to).
		WillReturnResult(sqlmock.NewResult(0, 2))

	archived, err := repo.ArchiveBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, archived)
	assert.NoError(t, mock.ExpectationsWereMet())
}
