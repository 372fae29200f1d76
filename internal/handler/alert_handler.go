package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
	"github.com/r2suporte/interalpha-api/pkg/response"
)

type alertRuleService interface {
	Create(ctx context.Context, req dto.CreateAlertRuleRequest, createdBy string) (*models.AlertRule, error)
	Get(ctx context.Context, id string) (*models.AlertRule, error)
	List(ctx context.Context) ([]models.AlertRule, error)
	Update(ctx context.Context, id string, req dto.UpdateAlertRuleRequest) (*models.AlertRule, error)
	Delete(ctx context.Context, id string) error
}

type alertSender interface {
	SendTest(ctx context.Context, severity models.Severity, message string) error
}

// AlertHandler exposes alert rule administration and test dispatch.
type AlertHandler struct {
	rules  alertRuleService
	alerts alertSender
}

// NewAlertHandler constructs the handler.
func NewAlertHandler(rules alertRuleService, alerts alertSender) *AlertHandler {
	return &AlertHandler{rules: rules, alerts: alerts}
}

// Create godoc
// @Summary Create an alert rule
// @Tags Alerts
// @Accept json
// @Produce json
// @Param payload body dto.CreateAlertRuleRequest true "Rule"
// @Success 201 {object} response.Envelope
// @Router /alerts/rules [post]
func (h *AlertHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Get godoc
// @Summary Get an alert rule
// @Tags Alerts
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} response.Envelope
// @Router /alerts/rules/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// List godoc
// @Summary List alert rules
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts/rules [get]
func (h *AlertHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Update godoc
// @Summary Update an alert rule
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Rule id"
// @Param payload body dto.UpdateAlertRuleRequest true "Rule"
// @Success 200 {object} response.Envelope
// @Router /alerts/rules/{id} [put]
func (h *AlertHandler) Update(c *gin.Context) {
	var req dto.UpdateAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rule payload"))
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete an alert rule
// @Tags Alerts
// @Param id path string true "Rule id"
// @Success 204
// @Router /alerts/rules/{id} [delete]
func (h *AlertHandler) Delete(c *gin.Context) {
	if err := h.rules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SendTest godoc
// @Summary Send a test alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param payload body dto.SendTestAlertRequest true "Alert"
// @Success 202 {object} response.Envelope
// @Router /alerts/test [post]
func (h *AlertHandler) SendTest(c *gin.Context) {
	var req dto.SendTestAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid alert payload"))
		return
	}
	if !req.Severity.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown severity"))
		return
	}
	if err := h.alerts.SendTest(c.Request.Context(), req.Severity, req.Message); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "sent"}, nil)
}
