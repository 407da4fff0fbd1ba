package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/orders")
	{
		group.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListOrders)
		group.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetOrder)
		group.GET("/:id/reservations", middleware.RequireRole("admin", "manager", "staff"), h.GetOrderReservations)
		group.POST("", middleware.RequireRole("admin", "manager", "staff"), h.CreateOrder)
		group.PUT("/:id", middleware.RequireRole("admin", "manager", "staff"), h.UpdateOrder)
		group.POST("/:id/submit", middleware.RequireRole("admin", "manager", "staff"), h.SubmitOrder)
		group.POST("/:id/approve", middleware.RequireRole("admin", "manager"), h.ApproveOrder)
		group.POST("/:id/reject", middleware.RequireRole("admin", "manager"), h.RejectOrder)
		group.POST("/:id/retry-reservation", middleware.RequireRole("admin", "manager"), h.RetryReservation)
		group.POST("/:id/cancel", middleware.RequireRole("admin", "manager"), h.CancelOrder)
		group.POST("/:id/archive", middleware.RequireRole("admin", "manager"), h.ArchiveOrder)
	}
}

// CreateOrder handles POST /api/orders
// @Summary      Create a sales order
// @Description  Creates a draft order. No stock is held until approval.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdateOrder handles PUT /api/orders/:id
// @Summary      Edit a sales order
// @Description  Rewrites order lines. Orders holding stock are re-reserved from scratch.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      service.UpdateOrderRequest  true  "Update Order Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// SubmitOrder handles POST /api/orders/:id/submit
// @Summary      Submit an order for approval
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/submit [post]
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	if err := h.orderService.SubmitOrder(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order submitted for approval"))
}

// ApproveOrder handles POST /api/orders/:id/approve
// @Summary      Approve an order and reserve stock
// @Description  Attempts an all-or-nothing FIFO reservation; shortages move the order to SHORTAGE and raise import requirements.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/approve [post]
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	order, err := h.orderService.ApproveOrder(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// RejectOrder handles POST /api/orders/:id/reject
// @Summary      Reject a submitted order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Order ID"
// @Param        payload  body      rejectRequest  false  "Rejection reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/orders/{id}/reject [post]
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.orderService.RejectOrder(c.Request.Context(), actorID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order rejected"))
}

// RetryReservation handles POST /api/orders/:id/retry-reservation
// @Summary      Retry reservation for a shortage order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/retry-reservation [post]
func (h *OrderHandler) RetryReservation(c *gin.Context) {
	order, err := h.orderService.RetryReservation(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder handles POST /api/orders/:id/cancel
// @Summary      Cancel an order and release its holds
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	if err := h.orderService.CancelOrder(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order cancelled"))
}

// ArchiveOrder handles POST /api/orders/:id/archive
// @Summary      Archive a fully delivered order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/orders/{id}/archive [post]
func (h *OrderHandler) ArchiveOrder(c *gin.Context) {
	if err := h.orderService.ArchiveOrder(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order archived"))
}

// GetOrder handles GET /api/orders/:id
// @Summary      Get a sales order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.SalesOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetOrderReservations handles GET /api/orders/:id/reservations
// @Summary      List an order's stock reservations
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/orders/{id}/reservations [get]
func (h *OrderHandler) GetOrderReservations(c *gin.Context) {
	reservations, err := h.orderService.GetOrderReservations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"reservations": reservations}))
}

// ListOrders handles GET /api/orders
// @Summary      List sales orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page         query     int     false  "Page number"
// @Param        limit        query     int     false  "Items per page"
// @Param        status       query     string  false  "Status filter"
// @Param        customer_id  query     string  false  "Customer filter"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), params.Page, params.Limit, c.Query("status"), c.Query("customer_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}
