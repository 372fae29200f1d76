package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/repository"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type partStore interface {
	Create(ctx context.Context, part *models.Part) error
	GetByID(ctx context.Context, id string) (*models.Part, error)
	List(ctx context.Context, filter models.PartFilter) ([]models.Part, int, error)
	Update(ctx context.Context, part *models.Part) error
	AdjustStock(ctx context.Context, id string, delta int) error
}

// PartService manages the parts inventory. Stock never goes negative;
// consumption that would is rejected with a conflict.
type PartService struct {
	repo   partStore
	audit  auditWriter
	logger *zap.Logger
}

// NewPartService constructs the service.
func NewPartService(repo partStore, audit auditWriter, logger *zap.Logger) *PartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartService{repo: repo, audit: audit, logger: logger}
}

// Create registers an inventory item.
func (s *PartService) Create(ctx context.Context, req dto.CreatePartRequest, actor Actor) (*models.Part, error) {
	if req.StockQty < 0 || req.MinStockQty < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stock quantities must not be negative")
	}
	part := &models.Part{
		SKU:            req.SKU,
		Name:           req.Name,
		Description:    req.Description,
		StockQty:       req.StockQty,
		MinStockQty:    req.MinStockQty,
		UnitCostCents:  req.UnitCostCents,
		UnitPriceCents: req.UnitPriceCents,
	}
	if err := s.repo.Create(ctx, part); err != nil {
		return nil, err
	}
	s.auditChange(ctx, actor, "part.create", part.ID, nil, part)
	return part, nil
}

// Get returns one part.
func (s *PartService) Get(ctx context.Context, id string) (*models.Part, error) {
	part, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "part not found")
		}
		return nil, err
	}
	return part, nil
}

// List returns filtered parts with pagination metadata.
func (s *PartService) List(ctx context.Context, filter models.PartFilter) ([]models.Part, *models.Pagination, error) {
	parts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return parts, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Update edits the mutable part attributes.
func (s *PartService) Update(ctx context.Context, id string, req dto.UpdatePartRequest, actor Actor) (*models.Part, error) {
	part, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *part
	part.SKU = req.SKU
	part.Name = req.Name
	part.Description = req.Description
	part.MinStockQty = req.MinStockQty
	part.UnitCostCents = req.UnitCostCents
	part.UnitPriceCents = req.UnitPriceCents
	if err := s.repo.Update(ctx, part); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "part not found")
		}
		return nil, err
	}
	s.auditChange(ctx, actor, "part.update", part.ID, &before, part)
	return part, nil
}

// AdjustStock applies a signed stock delta, for restocking or shrinkage
// corrections.
func (s *PartService) AdjustStock(ctx context.Context, id string, req dto.AdjustStockRequest, actor Actor) (*models.Part, error) {
	if req.Delta == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delta must not be zero")
	}
	if err := s.adjust(ctx, id, req.Delta); err != nil {
		return nil, err
	}
	part, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	metadata, _ := json.Marshal(map[string]interface{}{"delta": req.Delta, "reason": req.Reason})
	s.auditStock(ctx, actor, id, metadata)
	return part, nil
}

// Consume removes stock for an order part line.
func (s *PartService) Consume(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "quantity must be positive")
	}
	return s.adjust(ctx, id, -quantity)
}

func (s *PartService) adjust(ctx context.Context, id string, delta int) error {
	if err := s.repo.AdjustStock(ctx, id, delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "part not found")
		}
		if errors.Is(err, repository.ErrInsufficientStock) {
			return appErrors.Clone(appErrors.ErrConflict, "insufficient stock")
		}
		return err
	}
	return nil
}

func (s *PartService) auditChange(ctx context.Context, actor Actor, action, resourceID string, before, after interface{}) {
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
		Resource:   "part",
		ResourceID: &resourceID,
		OldData:    oldData,
		NewData:    newData,
		Result:     models.AuditResultSuccess,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit part change", "action", action, "error", err)
	}
}

func (s *PartService) auditStock(ctx context.Context, actor Actor, partID string, metadata json.RawMessage) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.LogAction(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorKind:  actor.Kind,
		Action:     "part.adjust_stock",
		Resource:   "part",
		ResourceID: &partID,
		Result:     models.AuditResultSuccess,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit stock adjustment", "part_id", partID, "error", err)
	}
}
