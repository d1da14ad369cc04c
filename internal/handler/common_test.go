package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"erp-backend/internal/workflow"
)

func TestErrStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown entity", workflow.ErrUnknownEntity, http.StatusNotFound},
		{"unknown approval", workflow.ErrUnknownApproval, http.StatusNotFound},
		{"unauthorized", workflow.ErrUnauthorized, http.StatusForbidden},
		{"already decided", workflow.ErrAlreadyDecided, http.StatusConflict},
		{"entity drifted", workflow.ErrEntityDrifted, http.StatusConflict},
		{"invalid transition", workflow.ErrInvalidTransition, http.StatusConflict},
		{"invalid config", workflow.ErrInvalidConfig, http.StatusBadRequest},
		{"malformed id", fmt.Errorf("%w: malformed entity id %q", workflow.ErrInvalidPayload, "abc"), http.StatusBadRequest},
		{"wrapped taxonomy error", fmt.Errorf("submit: %w", workflow.ErrAllocationLocked), http.StatusConflict},
		{"infrastructure failure", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errStatus(tc.err); got != tc.want {
				t.Errorf("errStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
