package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/shelterflex/shelterflex-backend/internal/domain"
)

// HandlerFunc is an HTTP handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorRecorder counts rendered failures by error code.
type ErrorRecorder interface {
	CountError(code string)
}

// ErrorHandler is the single place where errors become HTTP responses.
type ErrorHandler struct {
	logger  *slog.Logger
	metrics ErrorRecorder
}

// NewErrorHandler creates an ErrorHandler. metrics may be nil.
func NewErrorHandler(logger *slog.Logger, metrics ErrorRecorder) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{logger: logger, metrics: metrics}
}

// WriteError classifies err and writes its envelope. If a response has
// already been started for r, the error is logged and dropped.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if state := stateFrom(ctx); state != nil && !state.claim() {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "response already started, dropping error",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return
	}

	failure := domain.Classify(err)
	status, body := failure.Envelope()

	if _, ok := failure.(*domain.Unclassified); ok {
		h.logger.LogAttrs(ctx, slog.LevelError, "unhandled error",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	AddError(ctx, err)
	if h.metrics != nil {
		h.metrics.CountError(string(body.Error.Code))
	}

	if werr := WriteJSON(w, status, body); werr != nil {
		h.logger.LogAttrs(ctx, slog.LevelError, "failed to write error response",
			slog.String("request_id", GetRequestID(ctx)),
			slog.String("error", werr.Error()),
		)
	}
}

// Handle adapts fn to http.HandlerFunc, routing its error through WriteError.
func (h *ErrorHandler) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.WriteError(w, r, err)
		}
	}
}

// NotFound answers unmatched routes and methods.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.WriteError(w, r, domain.NotFound("Route"))
}

// Recoverer tracks whether a response has started and converts panics into
// internal errors. It must run before any middleware that writes responses.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := &responseState{}
		tw := &trackingWriter{ResponseWriter: w, state: state}
		r = r.WithContext(context.WithValue(r.Context(), responseStateKey{}, state))

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("stack", string(debug.Stack())),
			)
			h.WriteError(tw, r, fmt.Errorf("panic: %v", rec))
		}()

		next.ServeHTTP(tw, r)
	})
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

type responseStateKey struct{}

// responseState records whether a response has been started for a request.
type responseState struct {
	mu      sync.Mutex
	started bool
}

// claim marks the response as started and reports whether it was not yet.
func (s *responseState) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	return true
}

func stateFrom(ctx context.Context) *responseState {
	s, _ := ctx.Value(responseStateKey{}).(*responseState)
	return s
}

// trackingWriter marks the response state on the first write.
type trackingWriter struct {
	http.ResponseWriter
	state *responseState
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.state.claim()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.state.claim()
	return tw.ResponseWriter.Write(b)
}

func (tw *trackingWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		tw.state.claim()
		f.Flush()
	}
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
