package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReturnHandler struct {
	returnService service.ReturnService
}

func NewReturnHandler(returnService service.ReturnService) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

func (h *ReturnHandler) RegisterRoutes(router *gin.RouterGroup) {
	returns := router.Group("/api/returns")
	{
		returns.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListReturns)
		returns.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetReturn)
		returns.POST("", middleware.RequireRole("admin", "manager", "staff"), h.CreateReturn)
		returns.POST("/:id/approve", middleware.RequireRole("admin", "manager"), h.ApproveReturn)
		returns.POST("/:id/reject", middleware.RequireRole("admin", "manager"), h.RejectReturn)
	}

	rejections := router.Group("/api/rejections")
	{
		rejections.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListRejections)
		rejections.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetRejection)
		rejections.POST("", middleware.RequireRole("admin", "manager", "staff"), h.CreateRejection)
		rejections.POST("/:id/approve", middleware.RequireRole("admin", "manager"), h.ApproveRejection)
		rejections.POST("/:id/reject", middleware.RequireRole("admin", "manager"), h.RejectRejection)
	}
}

// CreateReturn handles POST /api/returns
// @Summary      Record a material return
// @Description  Registers a pending customer return against an approved challan line.
// @Tags         returns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateReturnRequest  true  "Create Return Payload"
// @Success      201      {object}  response.Response{data=model.MaterialReturn}
// @Failure      400      {object}  response.Response
// @Router       /api/returns [post]
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	ret, err := h.returnService.CreateReturn(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ret))
}

// ApproveReturn handles POST /api/returns/:id/approve
// @Summary      Approve a material return
// @Description  RESTOCK returns quantity to the source batch; SCRAP and RETURN_TO_SUPPLIER book a loss at landed cost.
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Return ID"
// @Success      200  {object}  response.Response{data=model.MaterialReturn}
// @Failure      400  {object}  response.Response
// @Router       /api/returns/{id}/approve [post]
func (h *ReturnHandler) ApproveReturn(c *gin.Context) {
	ret, err := h.returnService.ApproveReturn(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ret))
}

// RejectReturn handles POST /api/returns/:id/reject
// @Summary      Reject a pending material return
// @Tags         returns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Return ID"
// @Param        payload  body      rejectRequest  false  "Rejection reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/returns/{id}/reject [post]
func (h *ReturnHandler) RejectReturn(c *gin.Context) {
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.returnService.RejectReturn(c.Request.Context(), actorID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Return rejected"))
}

// GetReturn handles GET /api/returns/:id
// @Summary      Get a material return
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Return ID"
// @Success      200  {object}  response.Response{data=model.MaterialReturn}
// @Failure      404  {object}  response.Response
// @Router       /api/returns/{id} [get]
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	ret, err := h.returnService.GetReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ret))
}

// ListReturns handles GET /api/returns
// @Summary      List material returns
// @Tags         returns
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        status  query     string  false  "Status filter"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/returns [get]
func (h *ReturnHandler) ListReturns(c *gin.Context) {
	params := pagination.Parse(c)
	returns, total, err := h.returnService.ListReturns(c.Request.Context(), params.Page, params.Limit, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"returns": returns,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// CreateRejection handles POST /api/rejections
// @Summary      Record a stock rejection
// @Description  Registers a pending write-off for damaged or defective stock in a batch.
// @Tags         rejections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRejectionRequest  true  "Create Rejection Payload"
// @Success      201      {object}  response.Response{data=model.StockRejection}
// @Failure      400      {object}  response.Response
// @Router       /api/rejections [post]
func (h *ReturnHandler) CreateRejection(c *gin.Context) {
	var req service.CreateRejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rejection, err := h.returnService.CreateRejection(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rejection))
}

// ApproveRejection handles POST /api/rejections/:id/approve
// @Summary      Approve a stock rejection
// @Description  Writes the quantity off the batch; reservations that no longer fit are released newest first and their orders pushed to SHORTAGE.
// @Tags         rejections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rejection ID"
// @Success      200  {object}  response.Response{data=model.StockRejection}
// @Failure      409  {object}  response.Response
// @Router       /api/rejections/{id}/approve [post]
func (h *ReturnHandler) ApproveRejection(c *gin.Context) {
	rejection, err := h.returnService.ApproveRejection(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rejection))
}

// RejectRejection handles POST /api/rejections/:id/reject
// @Summary      Dismiss a pending stock rejection
// @Tags         rejections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Rejection ID"
// @Param        payload  body      rejectRequest  false  "Dismissal reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/rejections/{id}/reject [post]
func (h *ReturnHandler) RejectRejection(c *gin.Context) {
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.returnService.RejectRejection(c.Request.Context(), actorID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Rejection dismissed"))
}

// GetRejection handles GET /api/rejections/:id
// @Summary      Get a stock rejection
// @Tags         rejections
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rejection ID"
// @Success      200  {object}  response.Response{data=model.StockRejection}
// @Failure      404  {object}  response.Response
// @Router       /api/rejections/{id} [get]
func (h *ReturnHandler) GetRejection(c *gin.Context) {
	rejection, err := h.returnService.GetRejection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rejection))
}

// ListRejections handles GET /api/rejections
// @Summary      List stock rejections
// @Tags         rejections
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        status  query     string  false  "Status filter"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/rejections [get]
func (h *ReturnHandler) ListRejections(c *gin.Context) {
	params := pagination.Parse(c)
	rejections, total, err := h.returnService.ListRejections(c.Request.Context(), params.Page, params.Limit, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rejections": rejections,
		"total":      total,
		"page":       params.Page,
		"limit":      params.Limit,
	}))
}
