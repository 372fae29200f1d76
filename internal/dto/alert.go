package dto

import "github.com/r2suporte/interalpha-api/internal/models"

// CreateAlertRuleRequest is the payload for defining an alert rule.
type CreateAlertRuleRequest struct {
	Name            string                    `json:"name" binding:"required"`
	Description     string                    `json:"description"`
	Enabled         bool                      `json:"enabled"`
	Conditions      models.AlertConditionList `json:"conditions" binding:"required"`
	Actions         models.StringList         `json:"actions"`
	CooldownMinutes int                       `json:"cooldown_minutes"`
}

// UpdateAlertRuleRequest edits the mutable rule fields.
type UpdateAlertRuleRequest struct {
	Name            string                    `json:"name" binding:"required"`
	Description     string                    `json:"description"`
	Enabled         bool                      `json:"enabled"`
	Conditions      models.AlertConditionList `json:"conditions" binding:"required"`
	Actions         models.StringList         `json:"actions"`
	CooldownMinutes int                       `json:"cooldown_minutes"`
}

// SendTestAlertRequest pushes a synthetic alert through the dispatcher so
// operators can verify channel configuration.
type SendTestAlertRequest struct {
	Severity models.Severity `json:"severity" binding:"required"`
	Message  string          `json:"message"`
}
