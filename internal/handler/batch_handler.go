package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	batchService     service.BatchService
	containerService service.ContainerService
}

func NewBatchHandler(batchService service.BatchService, containerService service.ContainerService) *BatchHandler {
	return &BatchHandler{batchService: batchService, containerService: containerService}
}

func (h *BatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/batches")
	{
		group.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListBatches)
		group.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetBatch)
		group.GET("/:id/stock-card", middleware.RequireRole("admin", "manager", "staff"), h.StockCard)
		group.POST("", middleware.RequireRole("admin", "manager"), h.CreateBatch)
		group.POST("/cost-preview", middleware.RequireRole("admin", "manager"), h.PreviewCost)
		group.PUT("/:id", middleware.RequireRole("admin", "manager"), h.UpdateBatch)
		group.POST("/:id/adjust", middleware.RequireRole("admin", "manager"), h.AdjustStock)
		group.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteBatch)
	}

	containers := router.Group("/api/containers")
	{
		containers.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListContainers)
		containers.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetContainer)
		containers.POST("", middleware.RequireRole("admin", "manager"), h.CreateContainer)
	}
}

// CreateBatch handles POST /api/batches
// @Summary      Import a new batch
// @Description  Creates a batch with its landed cost and opening purchase transaction
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/batches [post]
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	batch, err := h.batchService.CreateBatch(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// UpdateBatch handles PUT /api/batches/:id
// @Summary      Edit a batch
// @Description  Edits batch cost inputs or imported quantity, recomputing the landed cost and ledger balance
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Batch ID"
// @Param        payload  body      service.UpdateBatchRequest  true  "Update Batch Payload"
// @Success      200      {object}  response.Response{data=service.BatchResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/batches/{id} [put]
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	var req service.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	batch, err := h.batchService.UpdateBatch(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// DeleteBatch handles DELETE /api/batches/:id
// @Summary      Delete a batch
// @Description  Hard-deletes a batch with no dispatch history, holds or sales
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/batches/{id} [delete]
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	if err := h.batchService.DeleteBatch(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Batch deleted"))
}

// AdjustStock handles POST /api/batches/:id/adjust
// @Summary      Adjust batch stock
// @Description  Applies a signed manual correction to the batch ledger
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Batch ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/batches/{id}/adjust [post]
func (h *BatchHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.batchService.AdjustStock(c.Request.Context(), actorID(c), c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Stock adjusted"))
}

// GetBatch handles GET /api/batches/:id
// @Summary      Get a batch with its cost breakdown
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.batchService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// ListBatches handles GET /api/batches
// @Summary      List batches in FIFO order
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Items per page"
// @Param        product_id  query     string  false  "Filter by product"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	params := pagination.Parse(c)
	batches, total, err := h.batchService.ListBatches(c.Request.Context(), params.Page, params.Limit, c.Query("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"batches": batches,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// StockCard handles GET /api/batches/:id/stock-card
// @Summary      Get a batch's ledger with running balances
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/batches/{id}/stock-card [get]
func (h *BatchHandler) StockCard(c *gin.Context) {
	entries, err := h.batchService.StockCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"entries": entries}))
}

// PreviewCost handles POST /api/batches/cost-preview
// @Summary      Preview a landed cost breakdown
// @Description  Computes the landed cost for given inputs without creating a batch
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CostPreviewRequest  true  "Cost Inputs"
// @Success      200      {object}  response.Response{data=stock.CostBreakdown}
// @Failure      400      {object}  response.Response
// @Router       /api/batches/cost-preview [post]
func (h *BatchHandler) PreviewCost(c *gin.Context) {
	var req service.CostPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	breakdown, err := h.batchService.PreviewCost(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// CreateContainer handles POST /api/containers
// @Summary      Register an import container
// @Tags         containers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateContainerRequest  true  "Create Container Payload"
// @Success      201      {object}  response.Response{data=model.ImportContainer}
// @Failure      400      {object}  response.Response
// @Router       /api/containers [post]
func (h *BatchHandler) CreateContainer(c *gin.Context) {
	var req service.CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	container, err := h.containerService.CreateContainer(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, container))
}

// GetContainer handles GET /api/containers/:id
// @Summary      Get a container with its batches
// @Tags         containers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Container ID"
// @Success      200  {object}  response.Response{data=service.ContainerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/containers/{id} [get]
func (h *BatchHandler) GetContainer(c *gin.Context) {
	container, err := h.containerService.GetContainer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, container))
}

// ListContainers handles GET /api/containers
// @Summary      List import containers
// @Tags         containers
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/containers [get]
func (h *BatchHandler) ListContainers(c *gin.Context) {
	params := pagination.Parse(c)
	containers, total, err := h.containerService.ListContainers(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"containers": containers,
		"total":      total,
		"page":       params.Page,
		"limit":      params.Limit,
	}))
}
