// Package domain provides the canonical error types for the backend.
package domain

import (
	"fmt"
	"maps"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	// CodeValidation indicates client input that failed validation.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeUnauthorized indicates missing or invalid authentication.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeForbidden indicates an authenticated caller without permission.
	CodeForbidden Code = "FORBIDDEN"

	// CodeNotFound indicates a missing resource or route.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflict indicates a resource that already exists.
	CodeConflict Code = "CONFLICT"

	// CodeSoroban indicates a failure of the upstream Soroban RPC node.
	CodeSoroban Code = "SOROBAN_ERROR"

	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal Code = "INTERNAL_ERROR"

	// CodeRateLimited indicates the client exceeded its request budget.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodePayloadTooLarge indicates a request body over the configured limit.
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
)

// Error is a controlled, intentionally raised failure. Values are immutable;
// the With* methods return modified copies.
type Error struct {
	// Code is the machine-readable error code.
	Code Code

	// Status is the HTTP status code sent to the client.
	Status int

	// Message is safe to show to the client.
	Message string

	// Details carries optional structured context.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	c.Details = maps.Clone(e.Details)
	return &c
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = maps.Clone(details)
	return &c
}

func newError(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// NotFound reports that resource does not exist.
func NotFound(resource string) *Error {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized reports a request without valid authentication.
func Unauthorized() *Error {
	return newError(CodeUnauthorized, http.StatusUnauthorized, "Authentication required")
}

// Forbidden reports an authenticated caller lacking permission.
func Forbidden() *Error {
	return newError(CodeForbidden, http.StatusForbidden, "Insufficient permissions")
}

// Conflict reports that resource already exists.
func Conflict(resource string) *Error {
	return newError(CodeConflict, http.StatusConflict, resource+" already exists")
}

// SorobanError reports a failure of the upstream Soroban RPC node.
func SorobanError(message string, details map[string]any) *Error {
	return newError(CodeSoroban, http.StatusBadGateway, message).WithDetails(details)
}

// Internal reports an unexpected failure without exposing its cause.
func Internal() *Error {
	return newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
}

// TooManyRequests reports an exhausted rate-limit window.
func TooManyRequests() *Error {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}

// PayloadTooLarge reports a request body larger than limit bytes.
func PayloadTooLarge(limit int64) *Error {
	return newError(CodePayloadTooLarge, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", limit))
}
