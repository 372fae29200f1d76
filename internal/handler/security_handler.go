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

type securityService interface {
	RecordEvent(ctx context.Context, event *models.SecurityEventEntry) (*models.SecurityEventEntry, error)
	GetEvent(ctx context.Context, id string) (*models.SecurityEventEntry, error)
	ListEvents(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, *models.Pagination, error)
	ResolveEvent(ctx context.Context, id, resolvedBy, note, ipAddress, userAgent string) (*models.SecurityEventEntry, error)
}

// SecurityHandler exposes the security event endpoints.
type SecurityHandler struct {
	service securityService
}

// NewSecurityHandler constructs the handler.
func NewSecurityHandler(service securityService) *SecurityHandler {
	return &SecurityHandler{service: service}
}

// Record godoc
// @Summary Report a security event
// @Tags Security
// @Accept json
// @Produce json
// @Param payload body dto.RecordSecurityEventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Router /security/events [post]
func (h *SecurityHandler) Record(c *gin.Context) {
	var req dto.RecordSecurityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid security event payload"))
		return
	}
	event := &models.SecurityEventEntry{
		Type:        req.Type,
		Severity:    req.Severity,
		UserID:      req.UserID,
		IPAddress:   req.IPAddress,
		Description: req.Description,
		Details:     req.Details,
	}
	if req.UserAgent != "" {
		event.UserAgent = &req.UserAgent
	}
	created, err := h.service.RecordEvent(c.Request.Context(), event)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get one security event with its actions
// @Tags Security
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} response.Envelope
// @Router /security/events/{id} [get]
func (h *SecurityHandler) Get(c *gin.Context) {
	event, err := h.service.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// List godoc
// @Summary List security events
// @Tags Security
// @Produce json
// @Param type query string false "Event type filter"
// @Param severity query string false "Severity filter"
// @Param resolved query bool false "Resolution filter"
// @Success 200 {object} response.Envelope
// @Router /security/events [get]
func (h *SecurityHandler) List(c *gin.Context) {
	var req dto.SecurityEventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	filter := models.SecurityEventFilter{
		Type:      models.SecurityEventType(req.Type),
		Severity:  models.Severity(req.Severity),
		UserID:    req.UserID,
		IPAddress: req.IPAddress,
		Resolved:  req.Resolved,
		From:      parseTime(req.From),
		To:        parseTime(req.To),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	events, pagination, err := h.service.ListEvents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Resolve godoc
// @Summary Resolve a security event
// @Tags Security
// @Accept json
// @Produce json
// @Param id path string true "Event id"
// @Param payload body dto.ResolveSecurityEventRequest false "Resolution note"
// @Success 200 {object} response.Envelope
// @Router /security/events/{id}/resolve [post]
func (h *SecurityHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ResolveSecurityEventRequest
	_ = c.ShouldBindJSON(&req)

	event, err := h.service.ResolveEvent(c.Request.Context(), c.Param("id"), claims.UserID, req.Note, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}
