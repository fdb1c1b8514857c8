package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shelterflex/shelterflex-backend/internal/domain"
)

type bodyKey struct{}

// ErrorFunc terminates a request with err.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// BodyParser reads JSON request bodies up to limit bytes and checks their
// syntax before any handler runs. Malformed JSON and oversized bodies are
// passed to onError and the request goes no further. Requests without a JSON
// content type are passed through untouched.
func BodyParser(limit int64, onError ErrorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					onError(w, r, domain.PayloadTooLarge(limit))
					return
				}
				onError(w, r, fmt.Errorf("read request body: %w", err))
				return
			}

			if len(bytes.TrimSpace(raw)) == 0 {
				raw = []byte("{}")
			} else if !json.Valid(raw) {
				onError(w, r, &domain.MalformedJSONError{Err: syntaxError(raw)})
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(raw))
			next.ServeHTTP(w, r.WithContext(WithBody(r.Context(), raw)))
		})
	}
}

// WithBody stores a parsed JSON body in ctx.
func WithBody(ctx context.Context, raw []byte) context.Context {
	return context.WithValue(ctx, bodyKey{}, raw)
}

// Body returns the JSON body captured by BodyParser.
func Body(ctx context.Context) ([]byte, bool) {
	raw, ok := ctx.Value(bodyKey{}).([]byte)
	return raw, ok
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// syntaxError recovers the decoder's description of why raw is invalid.
func syntaxError(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}
