package models

import "time"

// Part is one inventory item (screens, batteries, boards, ...).
type Part struct {
	ID             string    `db:"id" json:"id"`
	SKU            string    `db:"sku" json:"sku"`
	Name           string    `db:"name" json:"name"`
	Description    *string   `db:"description" json:"description,omitempty"`
	StockQty       int       `db:"stock_qty" json:"stock_qty"`
	MinStockQty    int       `db:"min_stock_qty" json:"min_stock_qty"`
	UnitCostCents  int64     `db:"unit_cost_cents" json:"unit_cost_cents"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PartFilter captures filtering criteria for listing parts.
type PartFilter struct {
	Search   string
	LowStock bool
	Page     int
	PageSize int
}
