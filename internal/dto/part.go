package dto

// CreatePartRequest registers an inventory item.
type CreatePartRequest struct {
	SKU            string  `json:"sku" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Description    *string `json:"description"`
	StockQty       int     `json:"stock_qty"`
	MinStockQty    int     `json:"min_stock_qty"`
	UnitCostCents  int64   `json:"unit_cost_cents"`
	UnitPriceCents int64   `json:"unit_price_cents"`
}

// UpdatePartRequest edits the mutable part attributes. Stock moves through
// AdjustStockRequest instead.
type UpdatePartRequest struct {
	SKU            string  `json:"sku" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Description    *string `json:"description"`
	MinStockQty    int     `json:"min_stock_qty"`
	UnitCostCents  int64   `json:"unit_cost_cents"`
	UnitPriceCents int64   `json:"unit_price_cents"`
}

// AdjustStockRequest changes the stock level by a signed delta.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// PartListRequest captures query parameters for listing parts.
type PartListRequest struct {
	Search   string `form:"search"`
	LowStock bool   `form:"lowStock"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
