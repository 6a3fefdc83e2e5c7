package handler

import (
	"context"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/dto"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// OrderService is the part of the ordering service exposed over HTTP
type OrderService interface {
	Read(ctx context.Context, filter ordering.OrderFilter) (*shared.ListResult[ordering.Order], error)
	Create(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error)
	Update(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error)
	Upsert(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error)
	Delete(ctx context.Context, ids []string) (*shared.DeleteResult, error)
	DeleteCollection(ctx context.Context) (*shared.DeleteResult, error)
	Evaluate(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error)
	Submit(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error)
	Cancel(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error)
	Withdraw(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error)
	Complete(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error)
	QueryFulfillmentSolution(ctx context.Context, ids []string) (*shared.ListResult[ordering.FulfillmentSolutionResult], error)
	CreateFulfillment(ctx context.Context, ids []string) (*shared.ListResult[ordering.Fulfillment], error)
	TriggerFulfillment(ctx context.Context, ids []string) (*shared.ListResult[ordering.Fulfillment], error)
	CreateInvoice(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error)
	TriggerInvoice(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error)
}

// OrderHandler handles the order API endpoints.
//
// Batch endpoints answer 200 with the batch result as data. Per-item
// failures are reported in the item statuses and the operation status of
// the body, not in the HTTP status.
type OrderHandler struct {
	BaseHandler
	service OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
	orders.POST("", h.Create)
	orders.PUT("", h.Update)
	orders.POST("/upsert", h.Upsert)
	orders.POST("/delete", h.Delete)
	orders.POST("/evaluate", h.Evaluate)
	orders.POST("/submit", h.Submit)
	orders.POST("/cancel", h.Cancel)
	orders.POST("/withdraw", h.Withdraw)
	orders.POST("/complete", h.Complete)
	orders.POST("/fulfillment/solution", h.QueryFulfillmentSolution)
	orders.POST("/fulfillment/create", h.CreateFulfillment)
	orders.POST("/fulfillment/trigger", h.TriggerFulfillment)
	orders.POST("/invoice/create", h.CreateInvoice)
	orders.POST("/invoice/trigger", h.TriggerInvoice)
}

// List reads orders with filtering and pagination
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter := req.Filter()
	result, err := h.service.Read(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result, result.TotalCount, filter.Page, filter.PageSize)
}

// Get reads a single order
func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	filter := ordering.OrderFilter{Filter: shared.DefaultFilter(), IDs: []string{id}}
	filter.PageSize = 1
	result, err := h.service.Read(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orders := result.Payloads()
	if len(orders) == 0 {
		h.NotFound(c, "order "+id+" not found")
		return
	}
	h.Success(c, orders[0])
}

// Create stores new orders
func (h *OrderHandler) Create(c *gin.Context) {
	h.withOrders(c, h.service.Create)
}

// Update patches stored orders
func (h *OrderHandler) Update(c *gin.Context) {
	h.withOrders(c, h.service.Update)
}

// Upsert creates or updates orders
func (h *OrderHandler) Upsert(c *gin.Context) {
	h.withOrders(c, h.service.Upsert)
}

// Evaluate prices orders without storing them
func (h *OrderHandler) Evaluate(c *gin.Context) {
	h.withOrders(c, h.service.Evaluate)
}

// Delete removes the listed orders or the whole collection
func (h *OrderHandler) Delete(c *gin.Context) {
	var req dto.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var (
		result *shared.DeleteResult
		err    error
	)
	if req.Collection {
		result, err = h.service.DeleteCollection(c.Request.Context())
	} else {
		result, err = h.service.Delete(c.Request.Context(), req.IDs)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Submit submits pending orders
func (h *OrderHandler) Submit(c *gin.Context) {
	withIDs(h, c, h.service.Submit)
}

// Cancel cancels orders
func (h *OrderHandler) Cancel(c *gin.Context) {
	withIDs(h, c, h.service.Cancel)
}

// Withdraw withdraws orders
func (h *OrderHandler) Withdraw(c *gin.Context) {
	withIDs(h, c, h.service.Withdraw)
}

// Complete completes orders
func (h *OrderHandler) Complete(c *gin.Context) {
	withIDs(h, c, h.service.Complete)
}

// QueryFulfillmentSolution asks for fulfillment solutions of orders
func (h *OrderHandler) QueryFulfillmentSolution(c *gin.Context) {
	withIDs(h, c, h.service.QueryFulfillmentSolution)
}

// CreateFulfillment creates fulfillments for submitted orders
func (h *OrderHandler) CreateFulfillment(c *gin.Context) {
	withIDs(h, c, h.service.CreateFulfillment)
}

// TriggerFulfillment creates and triggers fulfillments
func (h *OrderHandler) TriggerFulfillment(c *gin.Context) {
	withIDs(h, c, h.service.TriggerFulfillment)
}

// CreateInvoice creates invoices for submitted orders
func (h *OrderHandler) CreateInvoice(c *gin.Context) {
	withIDs(h, c, h.service.CreateInvoice)
}

// TriggerInvoice creates, renders and sends invoices
func (h *OrderHandler) TriggerInvoice(c *gin.Context) {
	withIDs(h, c, h.service.TriggerInvoice)
}

func (h *OrderHandler) withOrders(
	c *gin.Context,
	op func(context.Context, []*ordering.Order) (*shared.ListResult[ordering.Order], error),
) {
	var req dto.OrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	result, err := op(c.Request.Context(), req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func withIDs[T any](h *OrderHandler, c *gin.Context, op func(context.Context, []string) (*shared.ListResult[T], error)) {
	var req dto.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	result, err := op(c.Request.Context(), req.IDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
