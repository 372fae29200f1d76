package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type orderStore interface {
	Create(ctx context.Context, order *models.ServiceOrder) error
	GetByID(ctx context.Context, id string) (*models.ServiceOrder, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.ServiceOrder, int, error)
	Update(ctx context.Context, order *models.ServiceOrder) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, deliveredAt *time.Time) error
	AddPart(ctx context.Context, line *models.OrderPart) error
	ListParts(ctx context.Context, orderID string) ([]models.OrderPart, error)
	PartsTotal(ctx context.Context, orderID string) (int64, error)
}

type clientGetter interface {
	Get(ctx context.Context, id string) (*models.Client, error)
}

type partConsumer interface {
	Get(ctx context.Context, id string) (*models.Part, error)
	Consume(ctx context.Context, id string, quantity int) error
}

type paymentSummer interface {
	TotalForOrder(ctx context.Context, orderID string) (int64, error)
}

// OrderService drives service orders through the repair workflow. Status
// moves only along the allowed transitions; parts consumed on an order
// come out of inventory at the moment they are added.
type OrderService struct {
	repo     orderStore
	clients  clientGetter
	parts    partConsumer
	payments paymentSummer
	audit    auditWriter
	logger   *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(repo orderStore, clients clientGetter, parts partConsumer, payments paymentSummer, audit auditWriter, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{repo: repo, clients: clients, parts: parts, payments: payments, audit: audit, logger: logger}
}

// Create opens a new order for a client.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest, actor Actor) (*models.ServiceOrder, error) {
	if _, err := s.clients.Get(ctx, req.ClientID); err != nil {
		return nil, err
	}
	order := &models.ServiceOrder{
		ClientID:      req.ClientID,
		DeviceModel:   req.DeviceModel,
		SerialNumber:  req.SerialNumber,
		ReportedIssue: req.ReportedIssue,
		Status:        models.OrderStatusOpen,
		CreatedBy:     actor.ID,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.auditChange(ctx, actor, "order.create", order.ID, nil, order)
	return order, nil
}

// Get returns one order with its part lines and the amount paid.
func (s *OrderService) Get(ctx context.Context, id string) (*dto.OrderDetailResponse, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListParts(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.TotalForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.OrderDetailResponse{ServiceOrder: *order, Parts: lines, PaidCents: paid}, nil
}

// List returns filtered orders with pagination metadata.
func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]models.ServiceOrder, *models.Pagination, error) {
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return orders, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Update edits diagnosis and labor pricing on a non-terminal order.
func (s *OrderService) Update(ctx context.Context, id string, req dto.UpdateOrderRequest, actor Actor) (*models.ServiceOrder, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order is closed")
	}
	before := *order
	order.DeviceModel = req.DeviceModel
	order.SerialNumber = req.SerialNumber
	order.ReportedIssue = req.ReportedIssue
	order.Diagnosis = req.Diagnosis
	order.LaborCents = req.LaborCents
	order.TotalCents = order.LaborCents + order.PartsCents
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.auditChange(ctx, actor, "order.update", order.ID, &before, order)
	return order, nil
}

// Transition moves an order along the workflow.
func (s *OrderService) Transition(ctx context.Context, id string, target models.OrderStatus, actor Actor) (*models.ServiceOrder, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(target) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}
	var deliveredAt *time.Time
	if target == models.OrderStatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, target, deliveredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service order not found")
		}
		return nil, err
	}
	before := *order
	order.Status = target
	order.DeliveredAt = deliveredAt
	s.auditChange(ctx, actor, "order.transition", order.ID, &before, order)
	return order, nil
}

// AddPart consumes inventory on an order and reprices it.
func (s *OrderService) AddPart(ctx context.Context, orderID string, req dto.AddOrderPartRequest, actor Actor) (*models.OrderPart, error) {
	if req.Quantity <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quantity must be positive")
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order is closed")
	}
	part, err := s.parts.Get(ctx, req.PartID)
	if err != nil {
		return nil, err
	}
	if err := s.parts.Consume(ctx, req.PartID, req.Quantity); err != nil {
		return nil, err
	}
	line := &models.OrderPart{
		OrderID:   orderID,
		PartID:    req.PartID,
		Quantity:  req.Quantity,
		UnitCents: part.UnitPriceCents,
	}
	if err := s.repo.AddPart(ctx, line); err != nil {
		return nil, err
	}

	partsTotal, err := s.repo.PartsTotal(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.PartsCents = partsTotal
	order.TotalCents = order.LaborCents + partsTotal
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	s.auditChange(ctx, actor, "order.add_part", orderID, nil, line)
	return line, nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*models.ServiceOrder, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) auditChange(ctx context.Context, actor Actor, action, resourceID string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	var oldData, newData json.RawMessage
	if before != nil {
		oldData, _ = json.Marshal(before)
	}
	if after != nil {
		newData, _ = json.Marshal(after)
	}
	if _, err := s.audit.LogAction(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorKind:  actor.Kind,
		Action:     action,
		Resource:   "service_order",
		ResourceID: &resourceID,
		OldData:    oldData,
		NewData:    newData,
		Result:     models.AuditResultSuccess,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit order change", "action", action, "error", err)
	}
}
