package handler

import (
	"net/http"

	"ebvision/internal/middleware"
	"ebvision/internal/repository"
	"ebvision/internal/service"
	"ebvision/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	types := router.Group("/api/opportunity-types")
	{
		types.GET("", middleware.RequirePermission("catalog.read"), h.ListTypes)
		types.POST("", middleware.RequirePermission("catalog.write"), h.CreateType)
		types.GET("/:id", middleware.RequirePermission("catalog.read"), h.GetType)
		types.PUT("/:id", middleware.RequirePermission("catalog.write"), h.UpdateType)
		types.DELETE("/:id", middleware.RequirePermission("catalog.write"), h.DeactivateType)
		types.GET("/:id/templates", middleware.RequirePermission("catalog.read"), h.ListTemplates)
		types.POST("/:id/templates", middleware.RequirePermission("catalog.write"), h.CreateTemplate)
		types.PUT("/:id/templates/reorder", middleware.RequirePermission("catalog.write"), h.ReorderTemplates)
		types.GET("/:id/requirements", middleware.RequirePermission("catalog.read"), h.TypeRequirements)
	}

	templates := router.Group("/api/stage-templates")
	{
		templates.PUT("/:id", middleware.RequirePermission("catalog.write"), h.UpdateTemplate)
		templates.DELETE("/:id", middleware.RequirePermission("catalog.write"), h.DeleteTemplate)
		templates.POST("/:id/required-actions", middleware.RequirePermission("catalog.write"), h.AddRequiredAction)
		templates.POST("/:id/required-documents", middleware.RequirePermission("catalog.write"), h.AddRequiredDocument)
	}

	requirements := router.Group("/api")
	{
		requirements.DELETE("/required-actions/:id", middleware.RequirePermission("catalog.write"), h.DeleteRequiredAction)
		requirements.DELETE("/required-documents/:id", middleware.RequirePermission("catalog.write"), h.DeleteRequiredDocument)
	}
}

// @Summary      List opportunity types
// @Description  Active pipeline definitions ordered by name
// @Tags         Catalog
// @Produce      json
// @Success      200 {object} response.Response
// @Security     BearerAuth
// @Router       /api/opportunity-types [get]
func (h *CatalogHandler) ListTypes(c *gin.Context) {
	types, err := h.catalogService.ListTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}

func (h *CatalogHandler) GetType(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.catalogService.GetType(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

func (h *CatalogHandler) CreateType(c *gin.Context) {
	var input service.CreateOpportunityTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.catalogService.CreateType(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, t))
}

func (h *CatalogHandler) UpdateType(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.UpdateOpportunityTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.catalogService.UpdateType(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// DeactivateType soft-deletes a type; existing opportunities keep their stages
func (h *CatalogHandler) DeactivateType(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeactivateType(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "opportunity type deactivated"}))
}

func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	templates, err := h.catalogService.ListTemplates(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, templates))
}

func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.CreateStageTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.catalogService.CreateTemplate(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, t))
}

func (h *CatalogHandler) UpdateTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.UpdateStageTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	t, err := h.catalogService.UpdateTemplate(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// @Summary      Delete a stage template
// @Description  Refused with 409 when opportunity stages already reference the template
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Template ID"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.Response "Template in use"
// @Security     BearerAuth
// @Router       /api/stage-templates/{id} [delete]
func (h *CatalogHandler) DeleteTemplate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "stage template deleted"}))
}

type reorderRequest struct {
	Orders []repository.TemplateOrder `json:"orders" binding:"required,min=1,dive"`
}

// ReorderTemplates applies new stage positions atomically
func (h *CatalogHandler) ReorderTemplates(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	templates, err := h.catalogService.ReorderTemplates(c.Request.Context(), id, req.Orders)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, templates))
}

func (h *CatalogHandler) AddRequiredAction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.AddRequiredActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	a, err := h.catalogService.AddRequiredAction(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, a))
}

func (h *CatalogHandler) DeleteRequiredAction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteRequiredAction(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "required action removed"}))
}

func (h *CatalogHandler) AddRequiredDocument(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.AddRequiredDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	d, err := h.catalogService.AddRequiredDocument(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, d))
}

func (h *CatalogHandler) DeleteRequiredDocument(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteRequiredDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "required document removed"}))
}

// TypeRequirements returns all required actions/documents of a type grouped by stage
func (h *CatalogHandler) TypeRequirements(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	reqs, err := h.catalogService.TypeRequirements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}
