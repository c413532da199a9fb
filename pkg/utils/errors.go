package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeSimulation           = "SIMULATION_ERROR"
	ErrCodeCancelled            = "CANCELLED"
	ErrCodeRateLimited          = "RATE_LIMITED"
)

// ClassifyError maps an engine or service error to an HTTP status and AppError
func ClassifyError(err error) (int, *AppError) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return http.StatusBadRequest, appErr
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusBadRequest, NewAppError(ErrCodeInvalidConfiguration, "Invalid simulation configuration", err.Error())
	case errors.Is(err, models.ErrInvalidStateTransition):
		return http.StatusUnprocessableEntity, NewAppError(ErrCodeSimulation, "Simulation failed", err.Error())
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, NewAppError(ErrCodeNotFound, "Resource not found", err.Error())
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, NewAppError(ErrCodeValidation, "Bad request", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, NewAppError(ErrCodeCancelled, "Simulation cancelled", err.Error())
	}
	return http.StatusInternalServerError, NewAppError(ErrCodeInternal, "Internal server error", err.Error())
}
