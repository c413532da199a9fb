package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"config", models.NewConfigError("trials", "must be positive"), http.StatusBadRequest, ErrCodeInvalidConfiguration},
		{"wrapped config", fmt.Errorf("load: %w", models.NewConfigError("teams", "no teams")), http.StatusBadRequest, ErrCodeInvalidConfiguration},
		{"state", models.NewStateError("step", "game is final"), http.StatusUnprocessableEntity, ErrCodeSimulation},
		{"not found", fmt.Errorf("run abc: %w", ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, ErrCodeCancelled},
		{"app error", NewAppError(ErrCodeValidation, "bad body"), http.StatusBadRequest, ErrCodeValidation},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, appErr := ClassifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestAppErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: run missing", NewAppError(ErrCodeNotFound, "run missing").Error())
	assert.Equal(t, "SIMULATION_ERROR: failed - trial 3", NewAppError(ErrCodeSimulation, "failed", "trial 3").Error())
}
