package dto

import "github.com/r2suporte/interalpha-api/internal/repository"

// DashboardResponse is the operational overview payload.
type DashboardResponse struct {
	OrdersByStatus  []repository.StatusCount `json:"orders_by_status"`
	RevenueCents    int64                    `json:"revenue_cents"`
	OrdersDelivered int                      `json:"orders_delivered"`
	LowStockParts   int                      `json:"low_stock_parts"`
	Security        SecurityOverview         `json:"security"`
}

// SecurityOverview is the dashboard's security card.
type SecurityOverview struct {
	UnresolvedBySeverity []repository.SeverityCount `json:"unresolved_by_severity"`
	FailedLogins24h      int                        `json:"failed_logins_24h"`
}
