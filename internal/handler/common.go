package handler

import (
	"errors"
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the acting identity from the context values the auth
// middleware stored.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if v, ok := c.Get("userRole"); ok {
		if s, ok := v.(string); ok {
			actor.Role = s
		}
	}
	return actor
}

// errStatus maps engine errors onto HTTP status codes: not-found to 404,
// permission to 403, state conflicts to 409, bad input to 400. Anything
// outside the taxonomy is an infrastructure failure, reported as 500.
func errStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrUnknownEntity),
		errors.Is(err, workflow.ErrUnknownApproval),
		errors.Is(err, workflow.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrAlreadyDecided),
		errors.Is(err, workflow.ErrEntityDrifted),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrAllocationLocked),
		errors.Is(err, workflow.ErrDuplicatePending):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrNotApprovable),
		errors.Is(err, workflow.ErrInvalidPercent),
		errors.Is(err, workflow.ErrInvalidConfig),
		errors.Is(err, workflow.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
