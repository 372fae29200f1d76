package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// ErrInsufficientStock reports a stock adjustment that would go negative.
var ErrInsufficientStock = fmt.Errorf("insufficient stock")

// PartRepository handles parts inventory persistence.
type PartRepository struct {
	db *sqlx.DB
}

// NewPartRepository constructs the repository.
func NewPartRepository(db *sqlx.DB) *PartRepository {
	return &PartRepository{db: db}
}

const partColumns = `id, sku, name, description, stock_qty, min_stock_qty, unit_cost_cents, unit_price_cents, created_at, updated_at`

// Create stores a new inventory item.
func (r *PartRepository) Create(ctx context.Context, part *models.Part) error {
	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if part.CreatedAt.IsZero() {
		part.CreatedAt = now
	}
	part.UpdatedAt = now
	const query = `INSERT INTO parts
	(id, sku, name, description, stock_qty, min_stock_qty, unit_cost_cents, unit_price_cents, created_at, updated_at)
	VALUES (:id, :sku, :name, :description, :stock_qty, :min_stock_qty, :unit_cost_cents, :unit_price_cents, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, part); err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	return nil
}

// GetByID retrieves one part. Missing ids surface sql.ErrNoRows.
func (r *PartRepository) GetByID(ctx context.Context, id string) (*models.Part, error) {
	query := fmt.Sprintf("SELECT %s FROM parts WHERE id = $1", partColumns)
	var part models.Part
	if err := r.db.GetContext(ctx, &part, query, id); err != nil {
		return nil, err
	}
	return &part, nil
}

// List returns a page of parts plus the total match count.
func (r *PartRepository) List(ctx context.Context, filter models.PartFilter) ([]models.Part, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 1)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(sku) LIKE $%d)", len(args), len(args)))
	}
	if filter.LowStock {
		conditions = append(conditions, "stock_qty <= min_stock_qty")
	}
	var where string
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM parts"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count parts: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM parts%s ORDER BY name ASC LIMIT %d OFFSET %d", partColumns, where, limit, offset)
	parts := make([]models.Part, 0, limit)
	if err := r.db.SelectContext(ctx, &parts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	return parts, total, nil
}

// Update edits the mutable part attributes.
func (r *PartRepository) Update(ctx context.Context, part *models.Part) error {
	part.UpdatedAt = time.Now().UTC()
	const query = `UPDATE parts
	SET sku = :sku, name = :name, description = :description, min_stock_qty = :min_stock_qty,
	    unit_cost_cents = :unit_cost_cents, unit_price_cents = :unit_price_cents, updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, part)
	if err != nil {
		return fmt.Errorf("update part: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check part update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdjustStock changes stock by delta. Negative deltas are rejected when
// they would take the quantity below zero.
func (r *PartRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	const query = `UPDATE parts
	SET stock_qty = stock_qty + $2, updated_at = $3
	WHERE id = $1 AND stock_qty + $2 >= 0`
	res, err := r.db.ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adjust part stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check stock adjust rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM parts WHERE id = $1)", id); err != nil {
			return fmt.Errorf("check part existence: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
		return ErrInsufficientStock
	}
	return nil
}
