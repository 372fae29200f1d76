package dto

import "github.com/r2suporte/interalpha-api/internal/models"

// CreateOrderRequest opens a new service order.
type CreateOrderRequest struct {
	ClientID      string  `json:"client_id" binding:"required"`
	DeviceModel   string  `json:"device_model" binding:"required"`
	SerialNumber  *string `json:"serial_number"`
	ReportedIssue string  `json:"reported_issue" binding:"required"`
}

// UpdateOrderRequest edits diagnosis and labor pricing.
type UpdateOrderRequest struct {
	DeviceModel   string  `json:"device_model" binding:"required"`
	SerialNumber  *string `json:"serial_number"`
	ReportedIssue string  `json:"reported_issue" binding:"required"`
	Diagnosis     *string `json:"diagnosis"`
	LaborCents    int64   `json:"labor_cents"`
}

// TransitionOrderRequest moves an order to a new workflow status.
type TransitionOrderRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// AddOrderPartRequest consumes a stocked part on an order.
type AddOrderPartRequest struct {
	PartID   string `json:"part_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// OrderListRequest captures query parameters for listing orders.
type OrderListRequest struct {
	ClientID string `form:"clientId"`
	Status   string `form:"status"`
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// OrderDetailResponse bundles an order with its part lines and the amount
// already paid.
type OrderDetailResponse struct {
	models.ServiceOrder
	Parts     []models.OrderPart `json:"parts"`
	PaidCents int64              `json:"paid_cents"`
}
