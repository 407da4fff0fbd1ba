package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChallanHandler struct {
	challanService service.ChallanService
}

func NewChallanHandler(challanService service.ChallanService) *ChallanHandler {
	return &ChallanHandler{challanService: challanService}
}

func (h *ChallanHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/challans")
	{
		group.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListChallans)
		group.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetChallan)
		group.POST("", middleware.RequireRole("admin", "manager", "staff"), h.CreateChallan)
		group.PUT("/:id", middleware.RequireRole("admin", "manager"), h.UpdateChallan)
		group.POST("/:id/approve", middleware.RequireRole("admin", "manager"), h.ApproveChallan)
		group.POST("/:id/reject", middleware.RequireRole("admin", "manager"), h.RejectChallan)
		group.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteChallan)
	}
}

// CreateChallan handles POST /api/challans
// @Summary      Create a delivery challan
// @Description  Creates a pending challan. Stock moves only when the challan is approved.
// @Tags         challans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateChallanRequest  true  "Create Challan Payload"
// @Success      201      {object}  response.Response{data=model.DeliveryChallan}
// @Failure      400      {object}  response.Response
// @Router       /api/challans [post]
func (h *ChallanHandler) CreateChallan(c *gin.Context) {
	var req service.CreateChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	challan, err := h.challanService.CreateChallan(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, challan))
}

// UpdateChallan handles PUT /api/challans/:id
// @Summary      Edit a delivery challan
// @Description  Rewrites challan lines. Approved challans are reverted and reapplied atomically.
// @Tags         challans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Challan ID"
// @Param        payload  body      service.UpdateChallanRequest  true  "Update Challan Payload"
// @Success      200      {object}  response.Response{data=model.DeliveryChallan}
// @Failure      409      {object}  response.Response
// @Router       /api/challans/{id} [put]
func (h *ChallanHandler) UpdateChallan(c *gin.Context) {
	var req service.UpdateChallanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	challan, err := h.challanService.UpdateChallan(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// ApproveChallan handles POST /api/challans/:id/approve
// @Summary      Approve a challan and deduct stock
// @Description  Consumes the order's reservations, writes sale transactions and advances delivery progress.
// @Tags         challans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Challan ID"
// @Success      200  {object}  response.Response{data=model.DeliveryChallan}
// @Failure      409  {object}  response.Response
// @Router       /api/challans/{id}/approve [post]
func (h *ChallanHandler) ApproveChallan(c *gin.Context) {
	challan, err := h.challanService.ApproveChallan(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// RejectChallan handles POST /api/challans/:id/reject
// @Summary      Reject a pending challan
// @Tags         challans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Challan ID"
// @Param        payload  body      rejectRequest  false  "Rejection reason"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/challans/{id}/reject [post]
func (h *ChallanHandler) RejectChallan(c *gin.Context) {
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.challanService.RejectChallan(c.Request.Context(), actorID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Challan rejected"))
}

// DeleteChallan handles DELETE /api/challans/:id
// @Summary      Delete a challan
// @Description  Approved challans have their stock effects reverted before deletion.
// @Tags         challans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Challan ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/challans/{id} [delete]
func (h *ChallanHandler) DeleteChallan(c *gin.Context) {
	if err := h.challanService.DeleteChallan(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Challan deleted"))
}

// GetChallan handles GET /api/challans/:id
// @Summary      Get a delivery challan
// @Tags         challans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Challan ID"
// @Success      200  {object}  response.Response{data=model.DeliveryChallan}
// @Failure      404  {object}  response.Response
// @Router       /api/challans/{id} [get]
func (h *ChallanHandler) GetChallan(c *gin.Context) {
	challan, err := h.challanService.GetChallan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// ListChallans handles GET /api/challans
// @Summary      List delivery challans
// @Tags         challans
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int     false  "Page number"
// @Param        limit     query     int     false  "Items per page"
// @Param        status    query     string  false  "Status filter"
// @Param        order_id  query     string  false  "Order filter"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/challans [get]
func (h *ChallanHandler) ListChallans(c *gin.Context) {
	params := pagination.Parse(c)
	challans, total, err := h.challanService.ListChallans(c.Request.Context(), params.Page, params.Limit, c.Query("status"), c.Query("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"challans": challans,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}
