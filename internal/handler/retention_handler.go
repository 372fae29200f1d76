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

type retentionService interface {
	CreatePolicy(ctx context.Context, policy *models.DataRetentionPolicy) (*models.DataRetentionPolicy, error)
	GetPolicy(ctx context.Context, id string) (*models.DataRetentionPolicy, error)
	ListPolicies(ctx context.Context) ([]models.DataRetentionPolicy, error)
	UpdatePolicy(ctx context.Context, policy *models.DataRetentionPolicy) (*models.DataRetentionPolicy, error)
	DeletePolicy(ctx context.Context, id string) error
	Execute(ctx context.Context, policyID, executedBy string, dryRun bool) (*models.RetentionRunResult, error)
}

// RetentionHandler exposes retention policy administration.
type RetentionHandler struct {
	service retentionService
}

// NewRetentionHandler constructs the handler.
func NewRetentionHandler(service retentionService) *RetentionHandler {
	return &RetentionHandler{service: service}
}

// Create godoc
// @Summary Create a retention policy
// @Tags Retention
// @Accept json
// @Produce json
// @Param payload body dto.CreateRetentionPolicyRequest true "Policy"
// @Success 201 {object} response.Envelope
// @Router /retention/policies [post]
func (h *RetentionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRetentionPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	policy := &models.DataRetentionPolicy{
		Name:             req.Name,
		Description:      req.Description,
		DataType:         req.DataType,
		RetentionDays:    req.RetentionDays,
		ArchiveAfterDays: req.ArchiveAfterDays,
		DeleteAfterDays:  req.DeleteAfterDays,
		Enabled:          req.Enabled,
		CreatedBy:        claims.UserID,
	}
	created, err := h.service.CreatePolicy(c.Request.Context(), policy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get a retention policy
// @Tags Retention
// @Produce json
// @Param id path string true "Policy id"
// @Success 200 {object} response.Envelope
// @Router /retention/policies/{id} [get]
func (h *RetentionHandler) Get(c *gin.Context) {
	policy, err := h.service.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// List godoc
// @Summary List retention policies
// @Tags Retention
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /retention/policies [get]
func (h *RetentionHandler) List(c *gin.Context) {
	policies, err := h.service.ListPolicies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policies, nil)
}

// Update godoc
// @Summary Update a retention policy
// @Tags Retention
// @Accept json
// @Produce json
// @Param id path string true "Policy id"
// @Param payload body dto.UpdateRetentionPolicyRequest true "Policy"
// @Success 200 {object} response.Envelope
// @Router /retention/policies/{id} [put]
func (h *RetentionHandler) Update(c *gin.Context) {
	var req dto.UpdateRetentionPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	existing, err := h.service.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.DataType = req.DataType
	existing.RetentionDays = req.RetentionDays
	existing.ArchiveAfterDays = req.ArchiveAfterDays
	existing.DeleteAfterDays = req.DeleteAfterDays
	existing.Enabled = req.Enabled

	updated, err := h.service.UpdatePolicy(c.Request.Context(), existing)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete a retention policy
// @Tags Retention
// @Param id path string true "Policy id"
// @Success 204
// @Router /retention/policies/{id} [delete]
func (h *RetentionHandler) Delete(c *gin.Context) {
	if err := h.service.DeletePolicy(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Execute godoc
// @Summary Execute a retention policy
// @Tags Retention
// @Accept json
// @Produce json
// @Param id path string true "Policy id"
// @Param payload body dto.ExecuteRetentionRequest false "Options"
// @Success 200 {object} response.Envelope
// @Router /retention/policies/{id}/execute [post]
func (h *RetentionHandler) Execute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExecuteRetentionRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.Execute(c.Request.Context(), c.Param("id"), claims.UserID, req.DryRun)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
