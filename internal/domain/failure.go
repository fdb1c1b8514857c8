package domain

import (
	"errors"
	"net/http"
)

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError wraps fields into a ValidationError.
func NewValidationError(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.String()
}

// MalformedJSONError reports a request body that is not valid JSON.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string {
	if e.Err == nil {
		return "malformed JSON body"
	}
	return "malformed JSON body: " + e.Err.Error()
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// Unclassified wraps any error that is not a controlled failure.
type Unclassified struct {
	Err error
}

func (e *Unclassified) Error() string {
	if e.Err == nil {
		return "unclassified error"
	}
	return e.Err.Error()
}

func (e *Unclassified) Unwrap() error { return e.Err }

// Failure is the closed set of outcomes the error normalizer knows how to
// render. Only the types in this package implement it.
type Failure interface {
	error
	// Envelope returns the HTTP status and the body sent to the client.
	Envelope() (int, ErrorResponse)
	failure()
}

func (e *Error) failure()              {}
func (e *ValidationError) failure()    {}
func (e *MalformedJSONError) failure() {}
func (e *Unclassified) failure()       {}

// Envelope implements Failure.
func (e *Error) Envelope() (int, ErrorResponse) {
	return e.Status, ErrorResponse{Error: ErrorBody{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}}
}

// Envelope implements Failure.
func (e *ValidationError) Envelope() (int, ErrorResponse) {
	return http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Code:    CodeValidation,
		Message: "Invalid request data",
		Details: e.Fields.Details(),
	}}
}

// Envelope implements Failure.
func (e *MalformedJSONError) Envelope() (int, ErrorResponse) {
	return http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Code:    CodeValidation,
		Message: "Malformed JSON in request body",
	}}
}

// Envelope implements Failure. The wrapped error never reaches the client.
func (e *Unclassified) Envelope() (int, ErrorResponse) {
	return Internal().Envelope()
}

// Classify maps err onto a Failure. Domain errors win over validation errors,
// which win over JSON parse errors; everything else is Unclassified.
func Classify(err error) Failure {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	var jsonErr *MalformedJSONError
	if errors.As(err, &jsonErr) {
		return jsonErr
	}
	var unclassified *Unclassified
	if errors.As(err, &unclassified) {
		return unclassified
	}
	return &Unclassified{Err: err}
}
