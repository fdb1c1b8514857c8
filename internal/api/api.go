// Package api mounts the public HTTP surface: health and the Soroban
// configuration and simulation endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelterflex/shelterflex-backend/internal/server"
	"github.com/shelterflex/shelterflex-backend/internal/soroban"
	"github.com/shelterflex/shelterflex-backend/internal/validate"
)

// Options configures the handlers.
type Options struct {
	Version   string
	StartTime time.Time
	Soroban   soroban.Config
	Simulator soroban.Simulator
	Errors    *server.ErrorHandler

	// RateLimit guards the public group. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler

	// Metrics serves /metrics outside the public group. Nil disables it.
	Metrics http.Handler

	// Now defaults to time.Now.
	Now func() time.Time
}

type Handlers struct {
	version   string
	startTime time.Time
	now       func() time.Time
	simulator soroban.Simulator
	errors    *server.ErrorHandler

	// sorobanConfig is encoded once so every response is byte-identical.
	sorobanConfig []byte
}

func NewHandlers(opts Options) (*Handlers, error) {
	cfg, err := json.Marshal(opts.Soroban)
	if err != nil {
		return nil, fmt.Errorf("encode soroban config: %w", err)
	}

	h := &Handlers{
		version:       opts.Version,
		startTime:     opts.StartTime,
		now:           opts.Now,
		simulator:     opts.Simulator,
		errors:        opts.Errors,
		sorobanConfig: cfg,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.startTime.IsZero() {
		h.startTime = h.now()
	}
	if h.simulator == nil {
		h.simulator = soroban.PendingSimulator{}
	}
	if h.errors == nil {
		h.errors = server.NewErrorHandler(nil, nil)
	}
	return h, nil
}

// Mount registers the routes on r.
func Mount(r chi.Router, opts Options) error {
	h, err := NewHandlers(opts)
	if err != nil {
		return err
	}

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}

		r.Get("/health", h.errors.Handle(h.handleHealth))
		r.Get("/soroban/config", h.errors.Handle(h.handleSorobanConfig))
		r.With(validate.Body[soroban.SimulateRequest](h.errors.WriteError)).
			Post("/soroban/simulate", h.errors.Handle(h.handleSimulate))
	})
	return nil
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return server.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.startTime) / time.Second),
	})
}

func (h *Handlers) handleSorobanConfig(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(h.sorobanConfig)
	return err
}

func (h *Handlers) handleSimulate(w http.ResponseWriter, r *http.Request) error {
	req, ok := validate.BodyOf[soroban.SimulateRequest](r)
	if !ok {
		return fmt.Errorf("simulate: validated body missing from context")
	}

	resp, err := h.simulator.Simulate(r.Context(), req)
	if err != nil {
		return fmt.Errorf("simulate %s: %w", *req.Method, err)
	}
	return server.WriteJSON(w, http.StatusOK, resp)
}
