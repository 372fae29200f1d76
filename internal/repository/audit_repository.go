package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// AuditRepository persists audit entries and access-log entries. Both
// tables are append-only; the only destructive paths are the retention
// scans at the bottom of this file.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditEntryColumns = `id, actor_id, actor_kind, action, resource, resource_id, old_data, new_data,
       result, reason, ip_address, user_agent, session_id, metadata, occurred_at`

// CreateEntry appends one audit entry.
func (r *AuditRepository) CreateEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries
	(id, actor_id, actor_kind, action, resource, resource_id, old_data, new_data, result, reason, ip_address, user_agent, session_id, metadata, occurred_at)
	VALUES (:id, :actor_id, :actor_kind, :action, :resource, :resource_id, :old_data, :new_data, :result, :reason, :ip_address, :user_agent, :session_id, :metadata, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// ListEntries returns a page of audit entries plus the total match count,
// newest first.
func (r *AuditRepository) ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	conditions := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.ActorKind != "" {
		args = append(args, filter.ActorKind)
		conditions = append(conditions, fmt.Sprintf("actor_kind = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.Resource != "" {
		args = append(args, filter.Resource)
		conditions = append(conditions, fmt.Sprintf("resource = $%d", len(args)))
	}
	if filter.Result != "" {
		args = append(args, filter.Result)
		conditions = append(conditions, fmt.Sprintf("result = $%d", len(args)))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM audit_entries%s ORDER BY occurred_at DESC LIMIT %d OFFSET %d",
		auditEntryColumns, where, limit, offset)

	entries := make([]models.AuditEntry, 0, limit)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, total, nil
}

const accessLogColumns = `id, user_id, user_type, action, ip_address, user_agent, location, success,
       failure_reason, session_duration, metadata, occurred_at`

// CreateAccessLog appends one access-log entry.
func (r *AuditRepository) CreateAccessLog(ctx context.Context, entry *models.AccessLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO access_log_entries
	(id, user_id, user_type, action, ip_address, user_agent, location, success, failure_reason, session_duration, metadata, occurred_at)
	VALUES (:id, :user_id, :user_type, :action, :ip_address, :user_agent, :location, :success, :failure_reason, :session_duration, :metadata, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create access log entry: %w", err)
	}
	return nil
}

// ListAccessLogs returns a page of access-log entries plus the total
// match count, newest first.
func (r *AuditRepository) ListAccessLogs(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLogEntry, int, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", len(args)))
	}
	if filter.Success != nil {
		args = append(args, *filter.Success)
		conditions = append(conditions, fmt.Sprintf("success = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM access_log_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count access log entries: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM access_log_entries%s ORDER BY occurred_at DESC LIMIT %d OFFSET %d",
		accessLogColumns, where, limit, offset)

	entries := make([]models.AccessLogEntry, 0, limit)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list access log entries: %w", err)
	}
	return entries, total, nil
}

// CountFailedLogins counts failed login attempts for a (user, ip) pair
// since the given instant. Used by the failed-login burst rule.
func (r *AuditRepository) CountFailedLogins(ctx context.Context, userID, ipAddress string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM access_log_entries
	WHERE user_id = $1 AND ip_address = $2 AND action = $3 AND success = FALSE AND occurred_at >= $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, ipAddress, models.AccessActionLogin, since); err != nil {
		return 0, fmt.Errorf("count failed logins: %w", err)
	}
	return count, nil
}

// RecentSuccessfulLocations returns the user's most recent distinct
// successful-login locations, newest first.
func (r *AuditRepository) RecentSuccessfulLocations(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT location FROM (
		SELECT location, MAX(occurred_at) AS last_seen FROM access_log_entries
		WHERE user_id = $1 AND success = TRUE AND location IS NOT NULL AND location <> ''
		GROUP BY location
	) known ORDER BY last_seen DESC LIMIT $2`
	locations := make([]string, 0, limit)
	if err := r.db.SelectContext(ctx, &locations, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list known locations: %w", err)
	}
	return locations, nil
}

// CountEntriesOlderThan counts audit entries at or before the cutoff.
func (r *AuditRepository) CountEntriesOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.countOlderThan(ctx, "audit_entries", cutoff)
}

// CountEntriesBetween counts audit entries inside (from, to].
func (r *AuditRepository) CountEntriesBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.countBetween(ctx, "audit_entries", from, to)
}

// ArchiveEntriesBetween moves audit entries inside (from, to] into the
// archive table. Re-archiving already archived rows is a no-op.
func (r *AuditRepository) ArchiveEntriesBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.archiveBetween(ctx, "audit_entries", auditEntryColumns, from, to)
}

// DeleteEntriesOlderThan permanently removes audit entries at or before
// the cutoff.
func (r *AuditRepository) DeleteEntriesOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.deleteOlderThan(ctx, "audit_entries", cutoff)
}

// CountAccessLogsOlderThan counts access logs at or before the cutoff.
func (r *AuditRepository) CountAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.countOlderThan(ctx, "access_log_entries", cutoff)
}

// CountAccessLogsBetween counts access logs inside (from, to].
func (r *AuditRepository) CountAccessLogsBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.countBetween(ctx, "access_log_entries", from, to)
}

// ArchiveAccessLogsBetween moves access logs inside (from, to] into the
// archive table.
func (r *AuditRepository) ArchiveAccessLogsBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.archiveBetween(ctx, "access_log_entries", accessLogColumns, from, to)
}

// DeleteAccessLogsOlderThan permanently removes access logs at or before
// the cutoff.
func (r *AuditRepository) DeleteAccessLogsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return r.deleteOlderThan(ctx, "access_log_entries", cutoff)
}

func (r *AuditRepository) countOlderThan(ctx context.Context, table string, cutoff time.Time) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE occurred_at <= $1", table)
	if err := r.db.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, fmt.Errorf("count %s older than cutoff: %w", table, err)
	}
	return count, nil
}

func (r *AuditRepository) countBetween(ctx context.Context, table string, from, to time.Time) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE occurred_at > $1 AND occurred_at <= $2", table)
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count %s between: %w", table, err)
	}
	return count, nil
}

func (r *AuditRepository) archiveBetween(ctx context.Context, table, columns string, from, to time.Time) (int, error) {
	query := fmt.Sprintf(`INSERT INTO %s_archive (%s)
	SELECT %s FROM %s WHERE occurred_at > $1 AND occurred_at <= $2
	ON CONFLICT (id) DO NOTHING`, table, columns, columns, table)
	res, err := r.db.ExecContext(ctx, query, from, to)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", table, err)
	}
	archived, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check archived %s rows: %w", table, err)
	}
	return int(archived), nil
}

func (r *AuditRepository) deleteOlderThan(ctx context.Context, table string, cutoff time.Time) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE occurred_at <= $1", table)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete %s older than cutoff: %w", table, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted %s rows: %w", table, err)
	}
	return int(deleted), nil
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
