package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/repository"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type partStoreStub struct {
	parts map[string]*models.Part
	seq   int
}

func newPartStoreStub() *partStoreStub {
	return &partStoreStub{parts: make(map[string]*models.Part)}
}

func (s *partStoreStub) Create(ctx context.Context, part *models.Part) error {
	s.seq++
	part.ID = fmt.Sprintf("part-%d", s.seq)
	copy := *part
	s.parts[part.ID] = &copy
	return nil
}

func (s *partStoreStub) GetByID(ctx context.Context, id string) (*models.Part, error) {
	part, ok := s.parts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *part
	return &copy, nil
}

func (s *partStoreStub) List(ctx context.Context, filter models.PartFilter) ([]models.Part, int, error) {
	result := make([]models.Part, 0, len(s.parts))
	for _, part := range s.parts {
		result = append(result, *part)
	}
	return result, len(result), nil
}

func (s *partStoreStub) Update(ctx context.Context, part *models.Part) error {
	if _, ok := s.parts[part.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *part
	s.parts[part.ID] = &copy
	return nil
}

func (s *partStoreStub) AdjustStock(ctx context.Context, id string, delta int) error {
	part, ok := s.parts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if part.StockQty+delta < 0 {
		return repository.ErrInsufficientStock
	}
	part.StockQty += delta
	return nil
}

func partFixture(t *testing.T) (*PartService, *partStoreStub, string) {
	t.Helper()
	store := newPartStoreStub()
	svc := NewPartService(store, nil, nil)
	part, err := svc.Create(context.Background(), dto.CreatePartRequest{
		SKU:            "SCR-01",
		Name:           "replacement screen",
		StockQty:       5,
		MinStockQty:    2,
		UnitCostCents:  20000,
		UnitPriceCents: 35000,
	}, testActor())
	require.NoError(t, err)
	return svc, store, part.ID
}

func TestConsumeReducesStock(t *testing.T) {
	svc, store, partID := partFixture(t)

	require.NoError(t, svc.Consume(context.Background(), partID, 3))
	assert.Equal(t, 2, store.parts[partID].StockQty)
}

func TestConsumeBeyondStockIsRejected(t *testing.T) {
	svc, store, partID := partFixture(t)

	err := svc.Consume(context.Background(), partID, 6)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 5, store.parts[partID].StockQty)
}

func TestConsumeNonPositiveQuantityIsRejected(t *testing.T) {
	svc, _, partID := partFixture(t)

	err := svc.Consume(context.Background(), partID, 0)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAdjustStockRestocks(t *testing.T) {
	store := newPartStoreStub()
	audit := &auditWriterStub{}
	svc := NewPartService(store, audit, nil)
	part, err := svc.Create(context.Background(), dto.CreatePartRequest{
		SKU: "BAT-02", Name: "battery", StockQty: 1, MinStockQty: 3,
	}, testActor())
	require.NoError(t, err)

	updated, err := svc.AdjustStock(context.Background(), part.ID, dto.AdjustStockRequest{Delta: 10, Reason: "supplier delivery"}, testActor())
	require.NoError(t, err)
	assert.Equal(t, 11, updated.StockQty)

	// part.create plus part.adjust_stock
	require.Len(t, audit.entries, 2)
	assert.Equal(t, "part.adjust_stock", audit.entries[1].Action)
}

func TestAdjustStockZeroDeltaIsRejected(t *testing.T) {
	svc, _, partID := partFixture(t)

	_, err := svc.AdjustStock(context.Background(), partID, dto.AdjustStockRequest{Delta: 0}, testActor())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreatePartNegativeStockIsRejected(t *testing.T) {
	store := newPartStoreStub()
	svc := NewPartService(store, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreatePartRequest{
		SKU: "SCR-01", Name: "screen", StockQty: -1,
	}, testActor())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, store.parts)
}
