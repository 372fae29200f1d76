package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	TotalForOrder(ctx context.Context, orderID string) (int64, error)
}

type orderGetter interface {
	Get(ctx context.Context, id string) (*dto.OrderDetailResponse, error)
}

// PaymentService records money received against service orders. A
// payment may not push the total received past the order total.
type PaymentService struct {
	repo   paymentStore
	orders orderGetter
	audit  auditWriter
	logger *zap.Logger
}

// NewPaymentService constructs the service.
func NewPaymentService(repo paymentStore, orders orderGetter, audit auditWriter, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, orders: orders, audit: audit, logger: logger}
}

// Create records a payment.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest, actor Actor) (*models.Payment, error) {
	if !req.Method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}
	if req.AmountCents <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order is cancelled")
	}
	if order.TotalCents > 0 && order.PaidCents+req.AmountCents > order.TotalCents {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment exceeds order total")
	}

	payment := &models.Payment{
		OrderID:     req.OrderID,
		Method:      req.Method,
		AmountCents: req.AmountCents,
		ReceivedBy:  actor.ID,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	s.auditPayment(ctx, actor, payment)
	return payment, nil
}

// List returns filtered payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return payments, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *PaymentService) auditPayment(ctx context.Context, actor Actor, payment *models.Payment) {
	if s.audit == nil {
		return
	}
	newData, _ := json.Marshal(payment)
	if _, err := s.audit.LogAction(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorKind:  actor.Kind,
		Action:     "payment.create",
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewData:    newData,
		Result:     models.AuditResultSuccess,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit payment", "payment_id", payment.ID, "error", err)
	}
}
