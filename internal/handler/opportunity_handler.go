package handler

import (
	"net/http"

	"ebvision/internal/middleware"
	"ebvision/internal/service"
	"ebvision/pkg/response"

	"github.com/gin-gonic/gin"
)

type OpportunityHandler struct {
	opportunityService service.OpportunityService
}

func NewOpportunityHandler(opportunityService service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{opportunityService: opportunityService}
}

func (h *OpportunityHandler) RegisterRoutes(router *gin.RouterGroup) {
	opportunities := router.Group("/api/opportunities")
	{
		opportunities.POST("", middleware.RequirePermission("opportunities.write"), h.CreateOpportunity)
		opportunities.GET("/:id", middleware.RequirePermission("opportunities.read"), h.GetOpportunity)
		opportunities.GET("/:id/stages", middleware.RequirePermission("opportunities.read"), h.GetStages)
	}
}

// @Summary      Create an opportunity
// @Description  Creates an opportunity; when a type is given its stage templates are instantiated and the first stage starts immediately
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        body body service.CreateOpportunityInput true "Opportunity"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.Response "Invalid payload"
// @Security     BearerAuth
// @Router       /api/opportunities [post]
func (h *OpportunityHandler) CreateOpportunity(c *gin.Context) {
	var input service.CreateOpportunityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	opportunity, err := h.opportunityService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, opportunity))
}

func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	opportunity, err := h.opportunityService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, opportunity))
}

// GetStages lists the opportunity's stages in pipeline order
func (h *OpportunityHandler) GetStages(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stages, err := h.opportunityService.Stages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stages))
}
