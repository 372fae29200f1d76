package models

import "time"

// OrderStatus tracks a service order through the repair workflow.
type OrderStatus string

const (
	OrderStatusOpen          OrderStatus = "OPEN"
	OrderStatusInAnalysis    OrderStatus = "IN_ANALYSIS"
	OrderStatusAwaitingParts OrderStatus = "AWAITING_PARTS"
	OrderStatusInRepair      OrderStatus = "IN_REPAIR"
	OrderStatusReady         OrderStatus = "READY"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusOpen:          {OrderStatusInAnalysis, OrderStatusCancelled},
	OrderStatusInAnalysis:    {OrderStatusAwaitingParts, OrderStatusInRepair, OrderStatusCancelled},
	OrderStatusAwaitingParts: {OrderStatusInRepair, OrderStatusCancelled},
	OrderStatusInRepair:      {OrderStatusReady, OrderStatusAwaitingParts, OrderStatusCancelled},
	OrderStatusReady:         {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether the workflow allows moving to the target
// status. Delivered and cancelled are terminal.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the workflow.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ServiceOrder is one device repair job.
type ServiceOrder struct {
	ID            string      `db:"id" json:"id"`
	ClientID      string      `db:"client_id" json:"client_id"`
	DeviceModel   string      `db:"device_model" json:"device_model"`
	SerialNumber  *string     `db:"serial_number" json:"serial_number,omitempty"`
	ReportedIssue string      `db:"reported_issue" json:"reported_issue"`
	Diagnosis     *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	Status        OrderStatus `db:"status" json:"status"`
	LaborCents    int64       `db:"labor_cents" json:"labor_cents"`
	PartsCents    int64       `db:"parts_cents" json:"parts_cents"`
	TotalCents    int64       `db:"total_cents" json:"total_cents"`
	CreatedBy     string      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
	DeliveredAt   *time.Time  `db:"delivered_at" json:"delivered_at,omitempty"`
}

// OrderPart is one part line consumed by a service order.
type OrderPart struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	PartID    string `db:"part_id" json:"part_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitCents int64  `db:"unit_cents" json:"unit_cents"`
}

// OrderFilter captures filtering criteria for listing service orders.
type OrderFilter struct {
	ClientID string
	Status   OrderStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
