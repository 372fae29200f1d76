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

type orderService interface {
	Create(ctx context.Context, req dto.CreateOrderRequest, actor service.Actor) (*models.ServiceOrder, error)
	Get(ctx context.Context, id string) (*dto.OrderDetailResponse, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.ServiceOrder, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateOrderRequest, actor service.Actor) (*models.ServiceOrder, error)
	Transition(ctx context.Context, id string, target models.OrderStatus, actor service.Actor) (*models.ServiceOrder, error)
	AddPart(ctx context.Context, orderID string, req dto.AddOrderPartRequest, actor service.Actor) (*models.OrderPart, error)
}

// OrderHandler exposes the service order workflow endpoints.
type OrderHandler struct {
	service orderService
}

// NewOrderHandler constructs the handler.
func NewOrderHandler(service orderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Create godoc
// @Summary Open a service order
// @Tags Orders
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrderRequest true "Order"
// @Success 201 {object} response.Envelope
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order payload"))
		return
	}
	order, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Get godoc
// @Summary Get an order with parts and payments summary
// @Tags Orders
// @Produce json
// @Param id path string true "Order id"
// @Success 200 {object} response.Envelope
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List service orders
// @Tags Orders
// @Produce json
// @Param clientId query string false "Client filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	orders, pagination, err := h.service.List(c.Request.Context(), models.OrderFilter{
		ClientID: req.ClientID,
		Status:   models.OrderStatus(req.Status),
		From:     parseTime(req.From),
		To:       parseTime(req.To),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, pagination)
}

// Update godoc
// @Summary Update an order's diagnosis and labor pricing
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id"
// @Param payload body dto.UpdateOrderRequest true "Order"
// @Success 200 {object} response.Envelope
// @Router /orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order payload"))
		return
	}
	order, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Transition godoc
// @Summary Move an order along the workflow
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id"
// @Param payload body dto.TransitionOrderRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) Transition(c *gin.Context) {
	var req dto.TransitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	order, err := h.service.Transition(c.Request.Context(), c.Param("id"), req.Status, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// AddPart godoc
// @Summary Consume a stocked part on an order
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id"
// @Param payload body dto.AddOrderPartRequest true "Part line"
// @Success 201 {object} response.Envelope
// @Router /orders/{id}/parts [post]
func (h *OrderHandler) AddPart(c *gin.Context) {
	var req dto.AddOrderPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid part payload"))
		return
	}
	line, err := h.service.AddPart(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, line)
}
