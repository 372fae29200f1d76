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

// RetentionPolicyRepository persists data retention policies.
type RetentionPolicyRepository struct {
	db *sqlx.DB
}

// NewRetentionPolicyRepository constructs the repository.
func NewRetentionPolicyRepository(db *sqlx.DB) *RetentionPolicyRepository {
	return &RetentionPolicyRepository{db: db}
}

const retentionPolicyColumns = `id, name, description, data_type, retention_days, archive_after_days,
       delete_after_days, enabled, created_by, created_at, last_executed`

// Create stores a new policy.
func (r *RetentionPolicyRepository) Create(ctx context.Context, policy *models.DataRetentionPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO data_retention_policies
	(id, name, description, data_type, retention_days, archive_after_days, delete_after_days, enabled, created_by, created_at, last_executed)
	VALUES (:id, :name, :description, :data_type, :retention_days, :archive_after_days, :delete_after_days, :enabled, :created_by, :created_at, :last_executed)`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("create retention policy: %w", err)
	}
	return nil
}

// GetByID retrieves one policy. Missing ids surface sql.ErrNoRows.
func (r *RetentionPolicyRepository) GetByID(ctx context.Context, id string) (*models.DataRetentionPolicy, error) {
	query := fmt.Sprintf("SELECT %s FROM data_retention_policies WHERE id = $1", retentionPolicyColumns)
	var policy models.DataRetentionPolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		return nil, err
	}
	return &policy, nil
}

// List returns all policies, newest first.
func (r *RetentionPolicyRepository) List(ctx context.Context) ([]models.DataRetentionPolicy, error) {
	query := fmt.Sprintf("SELECT %s FROM data_retention_policies ORDER BY created_at DESC", retentionPolicyColumns)
	var policies []models.DataRetentionPolicy
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("list retention policies: %w", err)
	}
	return policies, nil
}

// Update edits the mutable policy attributes.
func (r *RetentionPolicyRepository) Update(ctx context.Context, policy *models.DataRetentionPolicy) error {
	const query = `UPDATE data_retention_policies
	SET name = :name, description = :description, data_type = :data_type, retention_days = :retention_days,
	    archive_after_days = :archive_after_days, delete_after_days = :delete_after_days, enabled = :enabled
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, policy)
	if err != nil {
		return fmt.Errorf("update retention policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check retention policy update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetLastExecuted stamps a successful run. The guard against moving the
// stamp backwards keeps concurrent runs from losing the newest value.
func (r *RetentionPolicyRepository) SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error {
	const query = `UPDATE data_retention_policies
	SET last_executed = $2
	WHERE id = $1 AND (last_executed IS NULL OR last_executed < $2)`
	if _, err := r.db.ExecContext(ctx, query, id, executedAt); err != nil {
		return fmt.Errorf("stamp retention policy execution: %w", err)
	}
	return nil
}

// ListNeverExecuted returns enabled policies that have never run. Feeds
// compliance findings.
func (r *RetentionPolicyRepository) ListNeverExecuted(ctx context.Context) ([]models.DataRetentionPolicy, error) {
	query := fmt.Sprintf("SELECT %s FROM data_retention_policies WHERE enabled = TRUE AND last_executed IS NULL", retentionPolicyColumns)
	var policies []models.DataRetentionPolicy
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("list never executed policies: %w", err)
	}
	return policies, nil
}

// Delete removes a policy. Deleting a missing id reports sql.ErrNoRows.
func (r *RetentionPolicyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM data_retention_policies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete retention policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check retention policy delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
