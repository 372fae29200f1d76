package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

// SecurityEventRepository persists security events and their ordered
// remediation actions.
type SecurityEventRepository struct {
	db *sqlx.DB
}

// NewSecurityEventRepository constructs the repository.
func NewSecurityEventRepository(db *sqlx.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

const securityEventColumns = `id, type, severity, user_id, ip_address, user_agent, description, details,
       resolved, resolved_by, resolved_at, occurred_at`

const securityActionColumns = `id, event_id, action, automated, details, executed_at`

// Create appends a security event together with any pre-attached actions.
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEventEntry) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO security_event_entries
	(id, type, severity, user_id, ip_address, user_agent, description, details, resolved, resolved_by, resolved_at, occurred_at)
	VALUES (:id, :type, :severity, :user_id, :ip_address, :user_agent, :description, :details, :resolved, :resolved_by, :resolved_at, :occurred_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create security event: %w", err)
	}
	for i := range event.Actions {
		action := &event.Actions[i]
		action.EventID = event.ID
		if err := r.AppendAction(ctx, action); err != nil {
			return err
		}
	}
	return nil
}

// AppendAction records one remediation action for an event.
func (r *SecurityEventRepository) AppendAction(ctx context.Context, action *models.SecurityAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.ExecutedAt.IsZero() {
		action.ExecutedAt = time.Now().UTC()
	}
	const query = `INSERT INTO security_actions (id, event_id, action, automated, details, executed_at)
	VALUES (:id, :event_id, :action, :automated, :details, :executed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("append security action: %w", err)
	}
	return nil
}

// GetByID retrieves one event with its actions in execution order.
func (r *SecurityEventRepository) GetByID(ctx context.Context, id string) (*models.SecurityEventEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM security_event_entries WHERE id = $1", securityEventColumns)
	var event models.SecurityEventEntry
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "security event not found")
		}
		return nil, fmt.Errorf("get security event: %w", err)
	}
	actionsQuery := fmt.Sprintf("SELECT %s FROM security_actions WHERE event_id = $1 ORDER BY executed_at ASC", securityActionColumns)
	if err := r.db.SelectContext(ctx, &event.Actions, actionsQuery, id); err != nil {
		return nil, fmt.Errorf("list security actions: %w", err)
	}
	return &event, nil
}

// List returns a page of events plus the total match count, newest first.
func (r *SecurityEventRepository) List(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, int, error) {
	conditions := make([]string, 0, 7)
	args := make([]interface{}, 0, 7)

	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", len(args)))
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
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM security_event_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count security events: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM security_event_entries%s ORDER BY occurred_at DESC LIMIT %d OFFSET %d",
		securityEventColumns, where, limit, offset)

	events := make([]models.SecurityEventEntry, 0, limit)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list security events: %w", err)
	}
	return events, total, nil
}

// Resolve performs the one-way unresolved to resolved transition. The
// conditional update guarantees the first resolution wins; a second call
// reports ErrAlreadyResolved.
func (r *SecurityEventRepository) Resolve(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error {
	const query = `UPDATE security_event_entries
	SET resolved = TRUE, resolved_by = $2, resolved_at = $3
	WHERE id = $1 AND resolved = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, resolvedBy, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve security event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolve rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM security_event_entries WHERE id = $1)", id); err != nil {
			return fmt.Errorf("check security event existence: %w", err)
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "security event not found")
		}
		return appErrors.ErrAlreadyResolved
	}
	return nil
}

// CountUnresolved counts unresolved events at or above the severity.
func (r *SecurityEventRepository) CountUnresolved(ctx context.Context, severities []models.Severity) (int, error) {
	if len(severities) == 0 {
		var count int
		if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM security_event_entries WHERE resolved = FALSE"); err != nil {
			return 0, fmt.Errorf("count unresolved security events: %w", err)
		}
		return count, nil
	}
	query, args, err := sqlx.In("SELECT COUNT(*) FROM security_event_entries WHERE resolved = FALSE AND severity IN (?)", severities)
	if err != nil {
		return 0, fmt.Errorf("build unresolved count query: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count unresolved security events: %w", err)
	}
	return count, nil
}

// ListUnresolvedOlderThan returns unresolved events created at or before
// the cutoff, oldest first. Feeds stale-event compliance findings.
func (r *SecurityEventRepository) ListUnresolvedOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.SecurityEventEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM security_event_entries
	WHERE resolved = FALSE AND occurred_at <= $1 ORDER BY occurred_at ASC LIMIT $2`, securityEventColumns)
	events := make([]models.SecurityEventEntry, 0, limit)
	if err := r.db.SelectContext(ctx, &events, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list stale unresolved events: %w", err)
	}
	return events, nil
}

// CountOlderThan counts events at or before the cutoff.
func (r *SecurityEventRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM security_event_entries WHERE occurred_at <= $1", cutoff); err != nil {
		return 0, fmt.Errorf("count security events older than cutoff: %w", err)
	}
	return count, nil
}

// CountBetween counts events inside (from, to].
func (r *SecurityEventRepository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM security_event_entries WHERE occurred_at > $1 AND occurred_at <= $2", from, to); err != nil {
		return 0, fmt.Errorf("count security events between: %w", err)
	}
	return count, nil
}

// ArchiveBetween moves events inside (from, to] into the archive table.
// Action rows follow their event via the archive table's copy.
func (r *SecurityEventRepository) ArchiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := fmt.Sprintf(`INSERT INTO security_event_entries_archive (%s)
	SELECT %s FROM security_event_entries WHERE occurred_at > $1 AND occurred_at <= $2
	ON CONFLICT (id) DO NOTHING`, securityEventColumns, securityEventColumns)
	res, err := r.db.ExecContext(ctx, query, from, to)
	if err != nil {
		return 0, fmt.Errorf("archive security events: %w", err)
	}
	archived, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check archived security event rows: %w", err)
	}
	return int(archived), nil
}

// DeleteOlderThan permanently removes events at or before the cutoff.
// Action rows cascade with their event.
func (r *SecurityEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM security_event_entries WHERE occurred_at <= $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete security events older than cutoff: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted security event rows: %w", err)
	}
	return int(deleted), nil
}
