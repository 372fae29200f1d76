package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the operational
// dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// StatusCount pairs an order status with the number of orders in it.
type StatusCount struct {
	Status models.OrderStatus `db:"status" json:"status"`
	Count  int                `db:"count" json:"count"`
}

// OrdersByStatus counts open work grouped by workflow status.
func (r *DashboardRepository) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM service_orders GROUP BY status`
	var counts []StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	return counts, nil
}

// RevenueBetween sums payments received in the window, in cents.
func (r *DashboardRepository) RevenueBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	const query = `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE paid_at >= $1 AND paid_at < $2`
	if err := r.db.GetContext(ctx, &total, query, from, to); err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// OrdersDeliveredBetween counts orders delivered in the window.
func (r *DashboardRepository) OrdersDeliveredBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM service_orders WHERE delivered_at IS NOT NULL AND delivered_at >= $1 AND delivered_at < $2`
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count delivered orders: %w", err)
	}
	return count, nil
}

// LowStockCount counts parts at or below their minimum stock.
func (r *DashboardRepository) LowStockCount(ctx context.Context) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM parts WHERE stock_qty <= min_stock_qty`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count low stock parts: %w", err)
	}
	return count, nil
}

// SeverityCount pairs a severity with the number of security events at it.
type SeverityCount struct {
	Severity models.Severity `db:"severity" json:"severity"`
	Count    int             `db:"count" json:"count"`
}

// SecurityEventsBySeverity counts unresolved security events grouped by
// severity, for the security overview card.
func (r *DashboardRepository) SecurityEventsBySeverity(ctx context.Context, since time.Time) ([]SeverityCount, error) {
	const query = `SELECT severity, COUNT(*) AS count FROM security_event_entries
	WHERE resolved = FALSE AND occurred_at >= $1 GROUP BY severity`
	var counts []SeverityCount
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("count security events by severity: %w", err)
	}
	return counts, nil
}

// FailedLoginsSince counts failed login attempts across all actors.
func (r *DashboardRepository) FailedLoginsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM access_log_entries WHERE action = 'login' AND success = FALSE AND occurred_at >= $1`
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count failed logins: %w", err)
	}
	return count, nil
}
