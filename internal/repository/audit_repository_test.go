package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateEntryGeneratesIDAndTimestamp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_entries").WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditEntry{
		ActorID:   "user-1",
		ActorKind: models.ActorKindEmployee,
		Action:    "client.create",
		Resource:  "client",
		Result:    models.AuditResultSuccess,
		IPAddress: "10.0.0.1",
	}
	err := repo.CreateEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.OccurredAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntriesAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_entries WHERE actor_id = \$1 AND occurred_at >= \$2`).
		WithArgs("user-1", from).
		WillReturnRows(countRows)

	now := time.Now().UTC()
	listRows := sqlmock.NewRows([]string{
		"id", "actor_id", "actor_kind", "action", "resource", "resource_id", "old_data", "new_data",
		"result", "reason", "ip_address", "user_agent", "session_id", "metadata", "occurred_at",
	}).AddRow("e-1", "user-1", string(models.ActorKindEmployee), "client.create", "client", nil, nil, nil,
		string(models.AuditResultSuccess), nil, "10.0.0.1", "test-agent", nil, nil, now)
	mock.ExpectQuery(`FROM audit_entries WHERE actor_id = \$1 AND occurred_at >= \$2 ORDER BY occurred_at DESC`).
		WithArgs("user-1", from).
		WillReturnRows(listRows)

	entries, total, err := repo.ListEntries(context.Background(), models.AuditFilter{
		ActorID: "user-1",
		From:    &from,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "client.create", entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountFailedLoginsScopesUserAndIP(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	since := time.Now().UTC().Add(-15 * time.Minute)
	rows := sqlmock.NewRows([]string{"count"}).AddRow(5)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM access_log_entries`).
		WithArgs("user-1", "10.0.0.1", string(models.AccessActionLogin), since).
		WillReturnRows(rows)

	count, err := repo.CountFailedLogins(context.Background(), "user-1", "10.0.0.1", since)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentSuccessfulLocations(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"location"}).AddRow("Sao Paulo, BR").AddRow("Campinas, BR")
	mock.ExpectQuery(`SELECT location FROM`).
		WithArgs("user-1", 10).
		WillReturnRows(rows)

	locations, err := repo.RecentSuccessfulLocations(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sao Paulo, BR", "Campinas, BR"}, locations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveEntriesBetweenReportsMovedRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	from := time.Now().UTC().AddDate(0, 0, -365)
	to := time.Now().UTC().AddDate(0, 0, -90)
	mock.ExpectExec("INSERT INTO audit_entries_archive").
		WithArgs(from, to).
		WillReturnResult(sqlmock.NewResult(0, 3))

	archived, err := repo.ArchiveEntriesBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, archived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccessLogsOlderThan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	cutoff := time.Now().UTC().AddDate(0, 0, -365)
	mock.ExpectExec("DELETE FROM access_log_entries WHERE occurred_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteAccessLogsOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 7, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
