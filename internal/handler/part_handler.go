package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/service"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
	"github.com/r2suporte/interalpha-api/pkg/response"
)

type partService interface {
	Create(ctx context.Context, req dto.CreatePartRequest, actor service.Actor) (*models.Part, error)
	Get(ctx context.Context, id string) (*models.Part, error)
	List(ctx context.Context, filter models.PartFilter) ([]models.Part, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdatePartRequest, actor service.Actor) (*models.Part, error)
	AdjustStock(ctx context.Context, id string, req dto.AdjustStockRequest, actor service.Actor) (*models.Part, error)
}

// PartHandler exposes the inventory endpoints.
type PartHandler struct {
	service partService
}

// NewPartHandler constructs the handler.
func NewPartHandler(service partService) *PartHandler {
	return &PartHandler{service: service}
}

// Create godoc
// @Summary Register an inventory part
// @Tags Parts
// @Accept json
// @Produce json
// @Param payload body dto.CreatePartRequest true "Part"
// @Success 201 {object} response.Envelope
// @Router /parts [post]
func (h *PartHandler) Create(c *gin.Context) {
	var req dto.CreatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid part payload"))
		return
	}
	part, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, part)
}

// Get godoc
// @Summary Get a part
// @Tags Parts
// @Produce json
// @Param id path string true "Part id"
// @Success 200 {object} response.Envelope
// @Router /parts/{id} [get]
func (h *PartHandler) Get(c *gin.Context) {
	part, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, part, nil)
}

// List godoc
// @Summary List parts
// @Tags Parts
// @Produce json
// @Param search query string false "SKU or name search"
// @Param lowStock query bool false "Only parts at or below minimum stock"
// @Success 200 {object} response.Envelope
// @Router /parts [get]
func (h *PartHandler) List(c *gin.Context) {
	var req dto.PartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	parts, pagination, err := h.service.List(c.Request.Context(), models.PartFilter{
		Search:   req.Search,
		LowStock: req.LowStock,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parts, pagination)
}

// Update godoc
// @Summary Update a part
// @Tags Parts
// @Accept json
// @Produce json
// @Param id path string true "Part id"
// @Param payload body dto.UpdatePartRequest true "Part"
// @Success 200 {object} response.Envelope
// @Router /parts/{id} [put]
func (h *PartHandler) Update(c *gin.Context) {
	var req dto.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid part payload"))
		return
	}
	part, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, part, nil)
}

// AdjustStock godoc
// @Summary Adjust stock by a signed delta
// @Tags Parts
// @Accept json
// @Produce json
// @Param id path string true "Part id"
// @Param payload body dto.AdjustStockRequest true "Adjustment"
// @Success 200 {object} response.Envelope
// @Router /parts/{id}/stock [patch]
func (h *PartHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid adjustment payload"))
		return
	}
	part, err := h.service.AdjustStock(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, part, nil)
}
