package dto

import (
	"time"

	"github.com/leasegen/backend/internal/domain/lease"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RateLimitDetails tells a throttled client when to come back
type RateLimitDetails struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// DebugDetails carries internal diagnostics. Only sent outside production.
type DebugDetails struct {
	Stage string `json:"stage,omitempty"`
	Cause string `json:"cause,omitempty"`
	Stack string `json:"stack"`
}

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewErrorResponse creates a failure body
func NewErrorResponse(errMsg, message string, details any) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   errMsg,
		Message: message,
		Details: details,
	}
}

// NewFieldErrorResponse creates a failure body listing offending fields
func NewFieldErrorResponse(errMsg, message string, fields []lease.FieldError) ErrorResponse {
	if fields == nil {
		fields = []lease.FieldError{}
	}
	return NewErrorResponse(errMsg, message, fields)
}
