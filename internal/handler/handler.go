package handler

import (
	"errors"
	"net/http"

	"ebvision/internal/repository"
	"ebvision/internal/service"
	"ebvision/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors to HTTP statuses: guard failures are the
// client's problem, anything else is ours.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOpportunityClosed),
		errors.Is(err, service.ErrTemplateInUse):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRequirementsNotMet),
		errors.Is(err, service.ErrOutcomeRequired):
		status = http.StatusBadRequest
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// pathUUID parses a UUID path parameter, replying 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid "+name+" parameter: must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
