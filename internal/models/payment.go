package models

import "time"

// PaymentMethod enumerates accepted payment instruments.
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodTransfer   PaymentMethod = "transfer"
)

// Valid reports whether the method is accepted.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPix, PaymentMethodTransfer:
		return true
	}
	return false
}

// Payment records money received against a service order.
type Payment struct {
	ID          string        `db:"id" json:"id"`
	OrderID     string        `db:"order_id" json:"order_id"`
	Method      PaymentMethod `db:"method" json:"method"`
	AmountCents int64         `db:"amount_cents" json:"amount_cents"`
	ReceivedBy  string        `db:"received_by" json:"received_by"`
	Notes       *string       `db:"notes" json:"notes,omitempty"`
	PaidAt      time.Time     `db:"paid_at" json:"paid_at"`
}

// PaymentFilter captures filtering criteria for listing payments.
type PaymentFilter struct {
	OrderID  string
	Method   PaymentMethod
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
