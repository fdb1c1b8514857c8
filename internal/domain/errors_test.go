package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name        string
		err         *Error
		wantCode    Code
		wantStatus  int
		wantMessage string
	}{
		{"not found", NotFound("Property"), CodeNotFound, http.StatusNotFound, "Property not found"},
		{"unauthorized", Unauthorized(), CodeUnauthorized, http.StatusUnauthorized, "Authentication required"},
		{"forbidden", Forbidden(), CodeForbidden, http.StatusForbidden, "Insufficient permissions"},
		{"conflict", Conflict("Lease"), CodeConflict, http.StatusConflict, "Lease already exists"},
		{"soroban", SorobanError("rpc unavailable", nil), CodeSoroban, http.StatusBadGateway, "rpc unavailable"},
		{"internal", Internal(), CodeInternal, http.StatusInternalServerError, "An unexpected error occurred"},
		{"rate limited", TooManyRequests(), CodeRateLimited, http.StatusTooManyRequests, "Too many requests. Please try again later."},
		{"payload too large", PayloadTooLarge(1024), CodePayloadTooLarge, http.StatusRequestEntityTooLarge, "Request body exceeds 1024 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.wantStatus)
			}
			if tt.err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMessage)
			}
		})
	}
}

func TestError_WithMessageCopies(t *testing.T) {
	base := Unauthorized()
	custom := base.WithMessage("Token expired")

	if base.Message != "Authentication required" {
		t.Errorf("original mutated: %q", base.Message)
	}
	if custom.Message != "Token expired" || custom.Code != CodeUnauthorized {
		t.Errorf("unexpected copy: %+v", custom)
	}
}

func TestError_WithDetailsCopies(t *testing.T) {
	details := map[string]any{"rpc": "timeout"}
	err := SorobanError("upstream failed", details)
	details["rpc"] = "changed"

	if err.Details["rpc"] != "timeout" {
		t.Errorf("details aliased caller map: %v", err.Details)
	}
}

func TestClassify(t *testing.T) {
	validation := NewValidationError(FieldErrors{"method": "method cannot be empty"})
	malformed := &MalformedJSONError{Err: errors.New("unexpected EOF")}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain error", NotFound("Property"), "*domain.Error"},
		{"wrapped domain error", fmt.Errorf("load: %w", Conflict("Lease")), "*domain.Error"},
		{"validation", validation, "*domain.ValidationError"},
		{"wrapped validation", fmt.Errorf("handler: %w", validation), "*domain.ValidationError"},
		{"malformed json", malformed, "*domain.MalformedJSONError"},
		{"plain error", errors.New("boom"), "*domain.Unclassified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if name := fmt.Sprintf("%T", got); name != tt.want {
				t.Errorf("Classify() = %s, want %s", name, tt.want)
			}
		})
	}
}

func TestClassify_DomainErrorWinsOverValidation(t *testing.T) {
	err := errors.Join(NewValidationError(FieldErrors{"a": "bad"}), Forbidden())

	if _, ok := Classify(err).(*Error); !ok {
		t.Fatalf("expected domain error to take priority, got %T", Classify(err))
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		failure    Failure
		wantStatus int
		wantJSON   string
	}{
		{
			name:       "domain error without details",
			failure:    NotFound("Property"),
			wantStatus: http.StatusNotFound,
			wantJSON:   `{"error":{"code":"NOT_FOUND","message":"Property not found"}}`,
		},
		{
			name:       "domain error with details",
			failure:    SorobanError("simulation failed", map[string]any{"reason": "trap"}),
			wantStatus: http.StatusBadGateway,
			wantJSON:   `{"error":{"code":"SOROBAN_ERROR","message":"simulation failed","details":{"reason":"trap"}}}`,
		},
		{
			name:       "validation error",
			failure:    NewValidationError(FieldErrors{"method": "method cannot be empty", "contractId": "contractId is required"}),
			wantStatus: http.StatusBadRequest,
			wantJSON:   `{"error":{"code":"VALIDATION_ERROR","message":"Invalid request data","details":{"contractId":"contractId is required","method":"method cannot be empty"}}}`,
		},
		{
			name:       "malformed json",
			failure:    &MalformedJSONError{},
			wantStatus: http.StatusBadRequest,
			wantJSON:   `{"error":{"code":"VALIDATION_ERROR","message":"Malformed JSON in request body"}}`,
		},
		{
			name:       "unclassified hides cause",
			failure:    &Unclassified{Err: errors.New("pq: password authentication failed")},
			wantStatus: http.StatusInternalServerError,
			wantJSON:   `{"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := tt.failure.Envelope()
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.wantJSON {
				t.Errorf("body = %s, want %s", b, tt.wantJSON)
			}
		})
	}
}

func TestFieldErrors_AddKeepsFirst(t *testing.T) {
	f := FieldErrors{}
	f.Add("contractId", "_", "contractId is required")
	f.Add("contractId", "_", "contractId must be a 56-character Stellar strkey")
	f.Add("", "_", "Expected object, received array")

	if len(f) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(f), f)
	}
	if f["contractId"] != "contractId is required" {
		t.Errorf("first message not kept: %q", f["contractId"])
	}
	if f["_"] != "Expected object, received array" {
		t.Errorf("fallback key not used: %v", f)
	}
}
