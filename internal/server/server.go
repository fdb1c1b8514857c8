package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures a Server.
type Options struct {
	Port   int
	Logger *slog.Logger
	Errors *ErrorHandler

	// LogRequests installs LoggingMiddleware; LogSkipPaths are never logged.
	LogRequests  bool
	LogSkipPaths []string

	RequestTimeout time.Duration
	BodyLimit      int64
	CORSOrigins    []string

	// ServiceName names the otelhttp server span.
	ServiceName string

	// Metrics is optional.
	Metrics RequestRecorder
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

// New builds the router with the middleware chain applied in order. Routes
// are mounted by the caller on Router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eh := opts.Errors
	if eh == nil {
		eh = NewErrorHandler(logger, nil)
	}
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "shelterflex-backend"
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	if opts.LogRequests {
		r.Use(LoggingMiddleware(logger, opts.LogSkipPaths...))
	}
	r.Use(eh.Recoverer)
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(BodyParser(opts.BodyLimit, eh.WriteError))
	r.Use(CORS(opts.CORSOrigins))

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName)
	})
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}
	// HEAD is answered by the GET route.
	r.Use(middleware.GetHead)

	r.NotFound(eh.NotFound)
	r.MethodNotAllowed(eh.NotFound)

	return &Server{
		Router: r,
		Port:   opts.Port,
		logger: logger,
		http: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured port and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.Port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
