package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

// Actor identifies who performs a mutation, for the audit trail.
type Actor struct {
	ID        string
	Kind      models.ActorKind
	IP        string
	UserAgent string
}

type clientStore interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	Update(ctx context.Context, client *models.Client) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

// ClientService manages repair-shop customers. Every mutation leaves an
// audit entry carrying the before and after state.
type ClientService struct {
	repo   clientStore
	audit  auditWriter
	logger *zap.Logger
}

// NewClientService constructs the service.
func NewClientService(repo clientStore, audit auditWriter, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{repo: repo, audit: audit, logger: logger}
}

// Create registers a client.
func (s *ClientService) Create(ctx context.Context, req dto.CreateClientRequest, actor Actor) (*models.Client, error) {
	client := &models.Client{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Document: req.Document,
		Notes:    req.Notes,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}
	s.auditChange(ctx, actor, "client.create", client.ID, nil, client)
	return client, nil
}

// Get returns one client.
func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, err
	}
	return client, nil
}

// List returns filtered clients with pagination metadata.
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	clients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return clients, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Update edits client contact attributes.
func (s *ClientService) Update(ctx context.Context, id string, req dto.UpdateClientRequest, actor Actor) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *client
	client.FullName = req.FullName
	client.Email = req.Email
	client.Phone = req.Phone
	client.Document = req.Document
	client.Notes = req.Notes
	if err := s.repo.Update(ctx, client); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, err
	}
	s.auditChange(ctx, actor, "client.update", client.ID, &before, client)
	return client, nil
}

// Delete soft-deletes a client.
func (s *ClientService) Delete(ctx context.Context, id string, actor Actor) error {
	client, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return err
	}
	s.auditChange(ctx, actor, "client.delete", id, client, nil)
	return nil
}

func (s *ClientService) auditChange(ctx context.Context, actor Actor, action, resourceID string, before, after interface{}) {
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
		Resource:   "client",
		ResourceID: &resourceID,
		OldData:    oldData,
		NewData:    newData,
		Result:     models.AuditResultSuccess,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit client change", "action", action, "error", err)
	}
}
