package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type alertRuleCRUDStore interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id string) (*models.AlertRule, error)
	List(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, id string) error
}

// AlertRuleService manages the user-defined alert rules evaluated by the
// security pipeline.
type AlertRuleService struct {
	repo   alertRuleCRUDStore
	logger *zap.Logger
}

// NewAlertRuleService constructs the service.
func NewAlertRuleService(repo alertRuleCRUDStore, logger *zap.Logger) *AlertRuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertRuleService{repo: repo, logger: logger}
}

// Create validates and stores a rule.
func (s *AlertRuleService) Create(ctx context.Context, req dto.CreateAlertRuleRequest, createdBy string) (*models.AlertRule, error) {
	if err := validateConditions(req.Conditions); err != nil {
		return nil, err
	}
	rule := &models.AlertRule{
		Name:            req.Name,
		Description:     req.Description,
		Enabled:         req.Enabled,
		Conditions:      req.Conditions,
		Actions:         req.Actions,
		CooldownMinutes: req.CooldownMinutes,
		CreatedBy:       createdBy,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Get returns one rule.
func (s *AlertRuleService) Get(ctx context.Context, id string) (*models.AlertRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert rule not found")
		}
		return nil, err
	}
	return rule, nil
}

// List returns every rule.
func (s *AlertRuleService) List(ctx context.Context) ([]models.AlertRule, error) {
	return s.repo.List(ctx, false)
}

// Update validates and persists edits to a rule.
func (s *AlertRuleService) Update(ctx context.Context, id string, req dto.UpdateAlertRuleRequest) (*models.AlertRule, error) {
	if err := validateConditions(req.Conditions); err != nil {
		return nil, err
	}
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.Name = req.Name
	rule.Description = req.Description
	rule.Enabled = req.Enabled
	rule.Conditions = req.Conditions
	rule.Actions = req.Actions
	rule.CooldownMinutes = req.CooldownMinutes
	if err := s.repo.Update(ctx, rule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert rule not found")
		}
		return nil, err
	}
	return rule, nil
}

// Delete removes a rule.
func (s *AlertRuleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "alert rule not found")
		}
		return err
	}
	return nil
}

func validateConditions(conditions models.AlertConditionList) error {
	if len(conditions) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one condition is required")
	}
	for _, cond := range conditions {
		switch cond.Field {
		case models.ConditionFieldEventType, models.ConditionFieldSeverity, models.ConditionFieldIPAddress:
		default:
			return appErrors.Clone(appErrors.ErrValidation, "unknown condition field "+string(cond.Field))
		}
		switch cond.Operator {
		case models.ConditionOperatorEquals, models.ConditionOperatorIn, models.ConditionOperatorAtLeast:
		default:
			return appErrors.Clone(appErrors.ErrValidation, "unknown condition operator "+string(cond.Operator))
		}
		if len(cond.Values) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "condition values must not be empty")
		}
	}
	return nil
}
