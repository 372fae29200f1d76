package dto

import "github.com/r2suporte/interalpha-api/internal/models"

// CreatePaymentRequest records money received against an order.
type CreatePaymentRequest struct {
	OrderID     string               `json:"order_id" binding:"required"`
	Method      models.PaymentMethod `json:"method" binding:"required"`
	AmountCents int64                `json:"amount_cents" binding:"required"`
	Notes       *string              `json:"notes"`
}

// PaymentListRequest captures query parameters for listing payments.
type PaymentListRequest struct {
	OrderID  string `form:"orderId"`
	Method   string `form:"method"`
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
