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

// OrderRepository handles service order persistence.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, client_id, device_model, serial_number, reported_issue, diagnosis, status,
       labor_cents, parts_cents, total_cents, created_by, created_at, updated_at, delivered_at`

// Create stores a new service order.
func (r *OrderRepository) Create(ctx context.Context, order *models.ServiceOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	const query = `INSERT INTO service_orders
	(id, client_id, device_model, serial_number, reported_issue, diagnosis, status, labor_cents, parts_cents, total_cents, created_by, created_at, updated_at, delivered_at)
	VALUES (:id, :client_id, :device_model, :serial_number, :reported_issue, :diagnosis, :status, :labor_cents, :parts_cents, :total_cents, :created_by, :created_at, :updated_at, :delivered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create service order: %w", err)
	}
	return nil
}

// GetByID retrieves one service order with its part lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.ServiceOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM service_orders WHERE id = $1", orderColumns)
	var order models.ServiceOrder
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns a page of service orders plus the total match count.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.ServiceOrder, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	var where string
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM service_orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count service orders: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM service_orders%s ORDER BY created_at DESC LIMIT %d OFFSET %d", orderColumns, where, limit, offset)
	orders := make([]models.ServiceOrder, 0, limit)
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list service orders: %w", err)
	}
	return orders, total, nil
}

// Update edits the mutable order attributes and totals.
func (r *OrderRepository) Update(ctx context.Context, order *models.ServiceOrder) error {
	order.UpdatedAt = time.Now().UTC()
	const query = `UPDATE service_orders
	SET device_model = :device_model, serial_number = :serial_number, reported_issue = :reported_issue,
	    diagnosis = :diagnosis, status = :status, labor_cents = :labor_cents, parts_cents = :parts_cents,
	    total_cents = :total_cents, updated_at = :updated_at, delivered_at = :delivered_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("update service order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check service order update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves an order to a new status. Delivery stamps delivered_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, deliveredAt *time.Time) error {
	const query = `UPDATE service_orders
	SET status = $2, delivered_at = COALESCE($3, delivered_at), updated_at = $4
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, deliveredAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update service order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddPart appends a part line to an order.
func (r *OrderRepository) AddPart(ctx context.Context, line *models.OrderPart) error {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	const query = `INSERT INTO order_parts (id, order_id, part_id, quantity, unit_cents)
	VALUES (:id, :order_id, :part_id, :quantity, :unit_cents)`
	if _, err := r.db.NamedExecContext(ctx, query, line); err != nil {
		return fmt.Errorf("add order part: %w", err)
	}
	return nil
}

// ListParts returns the part lines for an order.
func (r *OrderRepository) ListParts(ctx context.Context, orderID string) ([]models.OrderPart, error) {
	const query = `SELECT id, order_id, part_id, quantity, unit_cents FROM order_parts WHERE order_id = $1 ORDER BY id`
	var lines []models.OrderPart
	if err := r.db.SelectContext(ctx, &lines, query, orderID); err != nil {
		return nil, fmt.Errorf("list order parts: %w", err)
	}
	return lines, nil
}

// PartsTotal sums the part lines of an order in cents.
func (r *OrderRepository) PartsTotal(ctx context.Context, orderID string) (int64, error) {
	var total int64
	const query = `SELECT COALESCE(SUM(quantity * unit_cents), 0) FROM order_parts WHERE order_id = $1`
	if err := r.db.GetContext(ctx, &total, query, orderID); err != nil {
		return 0, fmt.Errorf("sum order parts: %w", err)
	}
	return total, nil
}
