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

type auditService interface {
	LogAction(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error)
	ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, *models.Pagination, error)
	ListAccessLogs(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLogEntry, *models.Pagination, error)
}

// AuditHandler exposes the audit trail endpoints.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Record godoc
// @Summary Record an audit entry
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body dto.RecordAuditEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Router /audit/entries [post]
func (h *AuditHandler) Record(c *gin.Context) {
	var req dto.RecordAuditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid audit payload"))
		return
	}
	entry := &models.AuditEntry{
		ActorID:    req.ActorID,
		ActorKind:  req.ActorKind,
		Action:     req.Action,
		Resource:   req.Resource,
		ResourceID: req.ResourceID,
		OldData:    req.OldData,
		NewData:    req.NewData,
		Result:     req.Result,
		Reason:     req.Reason,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		SessionID:  req.SessionID,
		Metadata:   req.Metadata,
	}
	created, err := h.service.LogAction(c.Request.Context(), entry)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListEntries godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param actorId query string false "Actor filter"
// @Param action query string false "Action filter"
// @Param resource query string false "Resource filter"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /audit/entries [get]
func (h *AuditHandler) ListEntries(c *gin.Context) {
	var req dto.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	filter := models.AuditFilter{
		ActorID:   req.ActorID,
		ActorKind: models.ActorKind(req.ActorKind),
		Action:    req.Action,
		Resource:  req.Resource,
		Result:    models.AuditResult(req.Result),
		IPAddress: req.IPAddress,
		From:      parseTime(req.From),
		To:        parseTime(req.To),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	entries, pagination, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListAccessLogs godoc
// @Summary List access logs
// @Tags Audit
// @Produce json
// @Param userId query string false "User filter"
// @Param success query bool false "Outcome filter"
// @Success 200 {object} response.Envelope
// @Router /audit/access-logs [get]
func (h *AuditHandler) ListAccessLogs(c *gin.Context) {
	var req dto.AccessLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	filter := models.AccessLogFilter{
		UserID:    req.UserID,
		Action:    models.AccessAction(req.Action),
		IPAddress: req.IPAddress,
		Success:   req.Success,
		From:      parseTime(req.From),
		To:        parseTime(req.To),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	entries, pagination, err := h.service.ListAccessLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
