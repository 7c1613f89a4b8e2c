package handler

import (
	"net/http"

	"ebvision/internal/middleware"
	"ebvision/internal/service"
	"ebvision/pkg/pagination"
	"ebvision/pkg/response"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	opportunities := router.Group("/api/opportunities")
	{
		opportunities.GET("/:id/actions", middleware.RequirePermission("opportunities.read"), h.ListActions)
		opportunities.POST("/:id/actions", middleware.RequirePermission("opportunities.write"), h.RecordAction)
		opportunities.GET("/:id/documents", middleware.RequirePermission("opportunities.read"), h.ListDocuments)
		opportunities.POST("/:id/documents", middleware.RequirePermission("opportunities.write"), h.RecordDocument)
		opportunities.PUT("/:id/documents/:documentId/validation", middleware.RequirePermission("workflow.validate"), h.ValidateDocument)
	}

	stages := router.Group("/api/stages")
	{
		stages.GET("/:id/requirements", middleware.RequirePermission("opportunities.read"), h.StageRequirements)
	}
}

// @Summary      Record an action
// @Description  Appends an immutable action record against the opportunity, optionally scoped to a stage
// @Tags         Ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Opportunity ID"
// @Param        body body service.RecordActionInput true "Action"
// @Success      201 {object} response.Response
// @Failure      404 {object} response.Response "Opportunity or stage not found"
// @Security     BearerAuth
// @Router       /api/opportunities/{id}/actions [post]
func (h *LedgerHandler) RecordAction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.RecordActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	record, err := h.ledgerService.RecordAction(c.Request.Context(), id, middleware.UserIDFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

func (h *LedgerHandler) ListActions(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	actions, err := h.ledgerService.Actions(c.Request.Context(), id, p.Limit, p.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, actions))
}

func (h *LedgerHandler) RecordDocument(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var input service.RecordDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	record, err := h.ledgerService.RecordDocument(c.Request.Context(), id, middleware.UserIDFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

func (h *LedgerHandler) ListDocuments(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	documents, err := h.ledgerService.Documents(c.Request.Context(), id, p.Limit, p.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, documents))
}

// @Summary      Validate a document
// @Description  Moves a document's validation sub-state to validated or rejected; a rejected document can be re-reviewed
// @Tags         Ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Opportunity ID"
// @Param        documentId path string true "Document ID"
// @Param        body body service.ValidateDocumentInput true "Validation decision"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "Document not found"
// @Security     BearerAuth
// @Router       /api/opportunities/{id}/documents/{documentId}/validation [put]
func (h *LedgerHandler) ValidateDocument(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "documentId")
	if !ok {
		return
	}
	validatorID := middleware.UserIDFromContext(c)
	if validatorID == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "validator identity required"))
		return
	}
	var input service.ValidateDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	record, err := h.ledgerService.ValidateDocument(c.Request.Context(), id, documentID, *validatorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// StageRequirements reports requirement coverage for a stage without gating anything
func (h *LedgerHandler) StageRequirements(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	summary, err := h.ledgerService.StageRequirements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
