package handler

import (
	"net/http"

	"ebvision/internal/middleware"
	"ebvision/internal/service"
	"ebvision/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	workflowService service.WorkflowService
}

func NewWorkflowHandler(workflowService service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

func (h *WorkflowHandler) RegisterRoutes(router *gin.RouterGroup) {
	stages := router.Group("/api/stages")
	{
		stages.POST("/:id/start", middleware.RequirePermission("workflow.transition"), h.StartStage)
		stages.POST("/:id/complete", middleware.RequirePermission("workflow.transition"), h.CompleteStage)
		stages.POST("/:id/next", middleware.RequirePermission("workflow.transition"), h.MoveToNextStage)
		stages.POST("/:id/block", middleware.RequirePermission("workflow.transition"), h.BlockStage)
		stages.POST("/:id/unblock", middleware.RequirePermission("workflow.transition"), h.UnblockStage)
	}

	opportunities := router.Group("/api/opportunities")
	{
		opportunities.GET("/:id/stats", middleware.RequirePermission("opportunities.read"), h.GetStats)
		opportunities.GET("/:id/history", middleware.RequirePermission("opportunities.read"), h.GetHistory)
		opportunities.GET("/:id/current-stage", middleware.RequirePermission("opportunities.read"), h.GetCurrentStage)
		opportunities.POST("/:id/abandon", middleware.RequirePermission("workflow.validate"), h.Abandon)
		opportunities.POST("/:id/reopen", middleware.RequirePermission("workflow.validate"), h.Reopen)
	}

	workflow := router.Group("/api/workflow")
	{
		workflow.POST("/check-overdue", middleware.RequirePermission("workflow.validate"), h.CheckOverdue)
	}
}

// @Summary      Start a stage
// @Description  Moves a pending stage to in progress. The previous stage must be completed.
// @Tags         Workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Stage ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "Stage not found"
// @Failure      409 {object} response.Response "Transition not allowed"
// @Security     BearerAuth
// @Router       /api/stages/{id}/start [post]
func (h *WorkflowHandler) StartStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stage, err := h.workflowService.StartStage(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stage))
}

// @Summary      Complete a stage
// @Description  Completes an in-progress stage. Mandatory requirements must be satisfied; stages configured with validation need a gagnee/perdue outcome.
// @Tags         Workflow
// @Accept       json
// @Produce      json
// @Param        id path string true "Stage ID"
// @Param        body body service.CompleteStageInput false "Completion outcome"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "Requirements not met or outcome missing"
// @Failure      409 {object} response.Response "Transition not allowed"
// @Security     BearerAuth
// @Router       /api/stages/{id}/complete [post]
func (h *WorkflowHandler) CompleteStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.CompleteStageInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}
	stage, err := h.workflowService.CompleteStage(c.Request.Context(), id, middleware.UserIDFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stage))
}

// MoveToNextStage completes the stage and returns the auto-started successor
func (h *WorkflowHandler) MoveToNextStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	next, err := h.workflowService.MoveToNextStage(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, next))
}

type blockStageRequest struct {
	Reason string `json:"reason"`
}

// BlockStage suspends an in-progress stage
func (h *WorkflowHandler) BlockStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req blockStageRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}
	stage, err := h.workflowService.BlockStage(c.Request.Context(), id, middleware.UserIDFromContext(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stage))
}

// UnblockStage resumes a blocked stage
func (h *WorkflowHandler) UnblockStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stage, err := h.workflowService.UnblockStage(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stage))
}

// @Summary      Get pipeline statistics
// @Description  Aggregated stage counts, risk and priority tallies for one opportunity
// @Tags         Workflow
// @Produce      json
// @Param        id path string true "Opportunity ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "Opportunity not found"
// @Security     BearerAuth
// @Router       /api/opportunities/{id}/stats [get]
func (h *WorkflowHandler) GetStats(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.workflowService.OpportunityStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetHistory returns the opportunity with its stages and a merged timeline
func (h *WorkflowHandler) GetHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	history, err := h.workflowService.OpportunityHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// GetCurrentStage returns the lowest-ordered in-progress stage
func (h *WorkflowHandler) GetCurrentStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stage, err := h.workflowService.CurrentStage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stage))
}

type abandonRequest struct {
	Reason string `json:"reason"`
}

// Abandon cancels an open opportunity and freezes its pipeline
func (h *WorkflowHandler) Abandon(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req abandonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}
	if err := h.workflowService.AbandonOpportunity(c.Request.Context(), id, middleware.UserIDFromContext(c), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "opportunity abandoned"}))
}

// Reopen restores an abandoned opportunity to EN_COURS
func (h *WorkflowHandler) Reopen(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.workflowService.ReopenOpportunity(c.Request.Context(), id, middleware.UserIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "opportunity reopened"}))
}

// @Summary      Sweep overdue stages
// @Description  Escalates risk/priority on stages past their due date and logs an alert per stage
// @Tags         Workflow
// @Produce      json
// @Success      200 {object} response.Response
// @Security     BearerAuth
// @Router       /api/workflow/check-overdue [post]
func (h *WorkflowHandler) CheckOverdue(c *gin.Context) {
	stages, err := h.workflowService.CheckOverdueStages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"overdue_count": len(stages),
		"stages":        stages,
	}))
}
