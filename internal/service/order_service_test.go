package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type orderStoreStub struct {
	orders map[string]*models.ServiceOrder
	lines  map[string][]models.OrderPart
	seq    int
}

func newOrderStoreStub() *orderStoreStub {
	return &orderStoreStub{
		orders: make(map[string]*models.ServiceOrder),
		lines:  make(map[string][]models.OrderPart),
	}
}

func (s *orderStoreStub) Create(ctx context.Context, order *models.ServiceOrder) error {
	s.seq++
	order.ID = fmt.Sprintf("ord-%d", s.seq)
	order.CreatedAt = time.Now().UTC()
	copy := *order
	s.orders[order.ID] = &copy
	return nil
}

func (s *orderStoreStub) GetByID(ctx context.Context, id string) (*models.ServiceOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *order
	return &copy, nil
}

func (s *orderStoreStub) List(ctx context.Context, filter models.OrderFilter) ([]models.ServiceOrder, int, error) {
	result := make([]models.ServiceOrder, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, *order)
	}
	return result, len(result), nil
}

func (s *orderStoreStub) Update(ctx context.Context, order *models.ServiceOrder) error {
	if _, ok := s.orders[order.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *order
	s.orders[order.ID] = &copy
	return nil
}

func (s *orderStoreStub) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, deliveredAt *time.Time) error {
	order, ok := s.orders[id]
	if !ok {
		return sql.ErrNoRows
	}
	order.Status = status
	order.DeliveredAt = deliveredAt
	return nil
}

func (s *orderStoreStub) AddPart(ctx context.Context, line *models.OrderPart) error {
	line.ID = fmt.Sprintf("line-%d", len(s.lines[line.OrderID])+1)
	s.lines[line.OrderID] = append(s.lines[line.OrderID], *line)
	return nil
}

func (s *orderStoreStub) ListParts(ctx context.Context, orderID string) ([]models.OrderPart, error) {
	return s.lines[orderID], nil
}

func (s *orderStoreStub) PartsTotal(ctx context.Context, orderID string) (int64, error) {
	var total int64
	for _, line := range s.lines[orderID] {
		total += line.UnitCents * int64(line.Quantity)
	}
	return total, nil
}

type clientGetterStub struct {
	err error
}

func (c *clientGetterStub) Get(ctx context.Context, id string) (*models.Client, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &models.Client{ID: id, FullName: "Maria Souza"}, nil
}

type partConsumerStub struct {
	part       *models.Part
	consumeErr error
	consumed   map[string]int
}

func (p *partConsumerStub) Get(ctx context.Context, id string) (*models.Part, error) {
	if p.part == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "part not found")
	}
	return p.part, nil
}

func (p *partConsumerStub) Consume(ctx context.Context, id string, quantity int) error {
	if p.consumeErr != nil {
		return p.consumeErr
	}
	if p.consumed == nil {
		p.consumed = make(map[string]int)
	}
	p.consumed[id] += quantity
	return nil
}

type paymentSummerStub struct {
	total int64
}

func (p *paymentSummerStub) TotalForOrder(ctx context.Context, orderID string) (int64, error) {
	return p.total, nil
}

func testActor() Actor {
	return Actor{ID: "user-1", Kind: models.ActorKindEmployee, IP: "10.0.0.1", UserAgent: "test-agent"}
}

func orderFixture(t *testing.T) (*OrderService, *orderStoreStub, *partConsumerStub, *auditWriterStub) {
	t.Helper()
	store := newOrderStoreStub()
	parts := &partConsumerStub{part: &models.Part{ID: "part-1", SKU: "SCR-01", Name: "screen", StockQty: 10, UnitPriceCents: 35000}}
	audit := &auditWriterStub{}
	svc := NewOrderService(store, &clientGetterStub{}, parts, &paymentSummerStub{}, audit, nil)
	return svc, store, parts, audit
}

func openOrder(t *testing.T, svc *OrderService) *models.ServiceOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		ClientID:      "client-1",
		DeviceModel:   "Notebook X11",
		ReportedIssue: "does not power on",
	}, testActor())
	require.NoError(t, err)
	return order
}

func TestCreateOrderStartsOpenAndAudits(t *testing.T) {
	svc, _, _, audit := orderFixture(t)

	order := openOrder(t, svc)
	assert.Equal(t, models.OrderStatusOpen, order.Status)
	assert.Equal(t, "user-1", order.CreatedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "order.create", audit.entries[0].Action)
}

func TestCreateOrderUnknownClientFails(t *testing.T) {
	store := newOrderStoreStub()
	clients := &clientGetterStub{err: appErrors.Clone(appErrors.ErrNotFound, "client not found")}
	svc := NewOrderService(store, clients, &partConsumerStub{}, &paymentSummerStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		ClientID:      "missing",
		DeviceModel:   "Notebook X11",
		ReportedIssue: "does not power on",
	}, testActor())
	require.Error(t, err)
	assert.Empty(t, store.orders)
}

func TestTransitionFollowsWorkflow(t *testing.T) {
	svc, _, _, _ := orderFixture(t)
	order := openOrder(t, svc)

	order, err := svc.Transition(context.Background(), order.ID, models.OrderStatusInAnalysis, testActor())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInAnalysis, order.Status)

	order, err = svc.Transition(context.Background(), order.ID, models.OrderStatusInRepair, testActor())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInRepair, order.Status)
}

func TestTransitionRejectsSkippingStates(t *testing.T) {
	svc, _, _, _ := orderFixture(t)
	order := openOrder(t, svc)

	_, err := svc.Transition(context.Background(), order.ID, models.OrderStatusDelivered, testActor())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTransitionToDeliveredStampsDeliveredAt(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	order := openOrder(t, svc)
	for _, status := range []models.OrderStatus{
		models.OrderStatusInAnalysis, models.OrderStatusInRepair, models.OrderStatusReady,
	} {
		_, err := svc.Transition(context.Background(), order.ID, status, testActor())
		require.NoError(t, err)
	}

	delivered, err := svc.Transition(context.Background(), order.ID, models.OrderStatusDelivered, testActor())
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	require.NotNil(t, store.orders[order.ID].DeliveredAt)
}

func TestTransitionOutOfTerminalStateFails(t *testing.T) {
	svc, _, _, _ := orderFixture(t)
	order := openOrder(t, svc)
	_, err := svc.Transition(context.Background(), order.ID, models.OrderStatusCancelled, testActor())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), order.ID, models.OrderStatusOpen, testActor())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAddPartConsumesStockAndReprices(t *testing.T) {
	svc, store, parts, _ := orderFixture(t)
	order := openOrder(t, svc)

	_, err := svc.Update(context.Background(), order.ID, dto.UpdateOrderRequest{
		DeviceModel:   order.DeviceModel,
		ReportedIssue: order.ReportedIssue,
		LaborCents:    20000,
	}, testActor())
	require.NoError(t, err)

	line, err := svc.AddPart(context.Background(), order.ID, dto.AddOrderPartRequest{PartID: "part-1", Quantity: 2}, testActor())
	require.NoError(t, err)
	assert.Equal(t, int64(35000), line.UnitCents)
	assert.Equal(t, 2, parts.consumed["part-1"])

	updated := store.orders[order.ID]
	assert.Equal(t, int64(70000), updated.PartsCents)
	assert.Equal(t, int64(90000), updated.TotalCents)
}

func TestAddPartOnClosedOrderFails(t *testing.T) {
	svc, _, parts, _ := orderFixture(t)
	order := openOrder(t, svc)
	_, err := svc.Transition(context.Background(), order.ID, models.OrderStatusCancelled, testActor())
	require.NoError(t, err)

	_, err = svc.AddPart(context.Background(), order.ID, dto.AddOrderPartRequest{PartID: "part-1", Quantity: 1}, testActor())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, parts.consumed)
}

func TestAddPartInsufficientStockFails(t *testing.T) {
	svc, store, parts, _ := orderFixture(t)
	parts.consumeErr = appErrors.Clone(appErrors.ErrConflict, "insufficient stock")
	order := openOrder(t, svc)

	_, err := svc.AddPart(context.Background(), order.ID, dto.AddOrderPartRequest{PartID: "part-1", Quantity: 50}, testActor())
	require.Error(t, err)
	assert.Empty(t, store.lines[order.ID])
}

func TestGetOrderIncludesPartsAndPaid(t *testing.T) {
	store := newOrderStoreStub()
	parts := &partConsumerStub{part: &models.Part{ID: "part-1", UnitPriceCents: 35000}}
	svc := NewOrderService(store, &clientGetterStub{}, parts, &paymentSummerStub{total: 15000}, nil, nil)
	order := openOrder(t, svc)

	_, err := svc.AddPart(context.Background(), order.ID, dto.AddOrderPartRequest{PartID: "part-1", Quantity: 1}, testActor())
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Parts, 1)
	assert.Equal(t, int64(15000), detail.PaidCents)
}

func TestGetUnknownOrderReportsNotFound(t *testing.T) {
	svc, _, _, _ := orderFixture(t)

	_, err := svc.Get(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
