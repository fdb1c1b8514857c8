// Package runtime assembles the backend from configuration and manages the
// HTTP server lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shelterflex/shelterflex-backend/internal/api"
	"github.com/shelterflex/shelterflex-backend/internal/config"
	"github.com/shelterflex/shelterflex-backend/internal/ratelimit"
	"github.com/shelterflex/shelterflex-backend/internal/server"
	"github.com/shelterflex/shelterflex-backend/internal/soroban"
	"github.com/shelterflex/shelterflex-backend/internal/telemetry"
)

const serviceName = "shelterflex-backend"

// Backend owns the router, the rate limit store and the telemetry
// exporters. It can be embedded in tests or run standalone.
type Backend struct {
	cfg    *config.Config
	logger *slog.Logger

	// Dependencies (injected via options)
	store       ratelimit.Store
	simulator   soroban.Simulator
	now         func() time.Time
	addr        string
	traceWriter io.Writer

	// Internal state
	server         *server.Server
	metrics        *telemetry.Metrics
	ownsStore      bool
	tracerShutdown func(context.Context) error
	listener       net.Listener
	serveErr       chan error

	// Lifecycle management
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New wires the configured components. Nothing listens until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Backend, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Backend{
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		addr:        fmt.Sprintf(":%d", cfg.Port),
		traceWriter: os.Stderr,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if b.store == nil {
		store, err := b.newStore()
		if err != nil {
			return nil, err
		}
		b.store = store
		b.ownsStore = true
	}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(serviceName, cfg.Version, b.traceWriter, logger)
		if err != nil {
			b.closeStore()
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		b.tracerShutdown = shutdown
	}

	var errRecorder server.ErrorRecorder
	var reqRecorder server.RequestRecorder
	var limitRecorder ratelimit.Recorder
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		b.metrics = telemetry.NewMetrics()
		errRecorder, reqRecorder, limitRecorder = b.metrics, b.metrics, b.metrics
		metricsHandler = b.metrics.Handler()
	}

	eh := server.NewErrorHandler(logger, errRecorder)

	b.server = server.New(server.Options{
		Port:           cfg.Port,
		Logger:         logger,
		Errors:         eh,
		LogRequests:    !cfg.IsProduction(),
		LogSkipPaths:   []string{"/health"},
		RequestTimeout: cfg.RequestTimeout(),
		BodyLimit:      cfg.BodyLimitBytes,
		CORSOrigins:    cfg.Origins(),
		ServiceName:    serviceName,
		Metrics:        reqRecorder,
	})

	err := api.Mount(b.server.Router, api.Options{
		Version:   cfg.Version,
		StartTime: b.now(),
		Now:       b.now,
		Soroban:   soroban.NewConfig(cfg.SorobanRPCURL, cfg.SorobanNetworkPassphrase, cfg.SorobanContractID),
		Simulator: b.simulator,
		Errors:    eh,
		RateLimit: ratelimit.Middleware(ratelimit.Options{
			Store:      b.store,
			Limit:      cfg.RateLimitMaxRequests,
			Window:     cfg.RateLimitWindow(),
			TrustProxy: cfg.RateLimitTrustProxy,
			OnError:    eh.WriteError,
			Metrics:    limitRecorder,
		}),
		Metrics: metricsHandler,
	})
	if err != nil {
		b.closeStore()
		return nil, fmt.Errorf("mount routes: %w", err)
	}

	return b, nil
}

func (b *Backend) newStore() (ratelimit.Store, error) {
	if b.cfg.RateLimitRedisURL == "" {
		return ratelimit.NewMemoryStore(ratelimit.WithClock(b.now)), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := ratelimit.NewRedisStoreFromURL(ctx, b.cfg.RateLimitRedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect rate limit store: %w", err)
	}
	b.logger.Info("using redis rate limit store")
	return store, nil
}

// Handler returns the fully assembled HTTP handler.
func (b *Backend) Handler() http.Handler {
	return b.server.Router
}

// Metrics returns the metrics set, or nil when metrics are disabled.
func (b *Backend) Metrics() *telemetry.Metrics {
	return b.metrics
}

// Start binds the listener and serves in the background. Errors from the
// accept loop are reported by Wait.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listener != nil {
		return errors.New("backend already started")
	}

	ctx, b.cancel = context.WithCancel(ctx)

	if ms, ok := b.store.(*ratelimit.MemoryStore); ok && b.ownsStore {
		ms.StartJanitor(ctx)
	}

	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		b.cancel()
		return fmt.Errorf("listen on %s: %w", b.addr, err)
	}
	b.listener = ln
	b.serveErr = make(chan error, 1)

	go func() {
		b.serveErr <- b.server.Serve(ln)
	}()

	b.logger.Info("backend started",
		slog.String("addr", ln.Addr().String()),
		slog.String("env", b.cfg.NodeEnv),
		slog.String("version", b.cfg.Version))
	return nil
}

// Addr reports the bound address once started.
func (b *Backend) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Wait blocks until the server stops or ctx is done.
func (b *Backend) Wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.serveErr
	b.mu.Unlock()
	if ch == nil {
		return errors.New("backend not started")
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown drains in-flight requests and releases resources.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger.Info("shutting down backend")

	if b.cancel != nil {
		b.cancel()
	}

	if b.listener != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			b.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	b.closeStore()

	if b.tracerShutdown != nil {
		if err := b.tracerShutdown(ctx); err != nil {
			b.logger.Error("failed to flush traces", slog.String("error", err.Error()))
		}
	}

	b.logger.Info("backend shutdown complete")
	return nil
}

func (b *Backend) closeStore() {
	if !b.ownsStore {
		return
	}
	if c, ok := b.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			b.logger.Error("failed to close rate limit store", slog.String("error", err.Error()))
		}
	}
}
