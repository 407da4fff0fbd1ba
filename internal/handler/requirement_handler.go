package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequirementHandler struct {
	requirementService service.RequirementService
}

func NewRequirementHandler(requirementService service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

func (h *RequirementHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/import-requirements")
	{
		group.GET("", middleware.RequireRole("admin", "manager", "staff"), h.ListRequirements)
		group.GET("/:id", middleware.RequireRole("admin", "manager", "staff"), h.GetRequirement)
		group.PUT("/:id", middleware.RequireRole("admin", "manager"), h.UpdateRequirement)
	}
}

// UpdateRequirement handles PUT /api/import-requirements/:id
// @Summary      Update an import requirement
// @Description  Advances the requirement through OPEN, ORDERED and RECEIVED, or cancels it.
// @Tags         import-requirements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Requirement ID"
// @Param        payload  body      service.UpdateRequirementRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=model.ImportRequirement}
// @Failure      400      {object}  response.Response
// @Router       /api/import-requirements/{id} [put]
func (h *RequirementHandler) UpdateRequirement(c *gin.Context) {
	var req service.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	requirement, err := h.requirementService.UpdateRequirement(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requirement))
}

// GetRequirement handles GET /api/import-requirements/:id
// @Summary      Get an import requirement
// @Tags         import-requirements
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requirement ID"
// @Success      200  {object}  response.Response{data=model.ImportRequirement}
// @Failure      404  {object}  response.Response
// @Router       /api/import-requirements/{id} [get]
func (h *RequirementHandler) GetRequirement(c *gin.Context) {
	requirement, err := h.requirementService.GetRequirement(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, requirement))
}

// ListRequirements handles GET /api/import-requirements
// @Summary      List import requirements
// @Tags         import-requirements
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number"
// @Param        limit       query     int     false  "Items per page"
// @Param        status      query     string  false  "Status filter"
// @Param        product_id  query     string  false  "Product filter"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/import-requirements [get]
func (h *RequirementHandler) ListRequirements(c *gin.Context) {
	params := pagination.Parse(c)
	requirements, total, err := h.requirementService.ListRequirements(c.Request.Context(), params.Page, params.Limit, c.Query("status"), c.Query("product_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requirements": requirements,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}
