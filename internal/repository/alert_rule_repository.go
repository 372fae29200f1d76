package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// AlertRuleRepository persists user-defined alert rules.
type AlertRuleRepository struct {
	db *sqlx.DB
}

// NewAlertRuleRepository constructs the repository.
func NewAlertRuleRepository(db *sqlx.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

const alertRuleColumns = `id, name, description, enabled, conditions, actions, cooldown_minutes,
       created_by, created_at, last_triggered, trigger_count`

// Create stores a new rule.
func (r *AlertRuleRepository) Create(ctx context.Context, rule *models.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alert_rules
	(id, name, description, enabled, conditions, actions, cooldown_minutes, created_by, created_at, last_triggered, trigger_count)
	VALUES (:id, :name, :description, :enabled, :conditions, :actions, :cooldown_minutes, :created_by, :created_at, :last_triggered, :trigger_count)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create alert rule: %w", err)
	}
	return nil
}

// GetByID retrieves one rule. Missing ids surface sql.ErrNoRows.
func (r *AlertRuleRepository) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	query := fmt.Sprintf("SELECT %s FROM alert_rules WHERE id = $1", alertRuleColumns)
	var rule models.AlertRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns rules, optionally restricted to enabled ones.
func (r *AlertRuleRepository) List(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error) {
	query := fmt.Sprintf("SELECT %s FROM alert_rules", alertRuleColumns)
	if enabledOnly {
		query += " WHERE enabled = TRUE"
	}
	query += " ORDER BY created_at DESC"
	var rules []models.AlertRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	return rules, nil
}

// Update edits the mutable rule attributes.
func (r *AlertRuleRepository) Update(ctx context.Context, rule *models.AlertRule) error {
	const query = `UPDATE alert_rules
	SET name = :name, description = :description, enabled = :enabled, conditions = :conditions,
	    actions = :actions, cooldown_minutes = :cooldown_minutes
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check alert rule update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkTriggered atomically records one firing of the rule.
func (r *AlertRuleRepository) MarkTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	const query = `UPDATE alert_rules
	SET last_triggered = $2, trigger_count = trigger_count + 1
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, triggeredAt); err != nil {
		return fmt.Errorf("mark alert rule triggered: %w", err)
	}
	return nil
}

// Delete removes a rule. Deleting a missing id reports sql.ErrNoRows.
func (r *AlertRuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check alert rule delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
