// Package httpapi serves profiling sessions over HTTP. Each session owns one
// engine, addressed by a uuid and guarded by its own mutex.
package httpapi

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/correlation"
	"github.com/Sumatoshi-tech/datalens/pkg/engine"
	"github.com/Sumatoshi-tech/datalens/pkg/observability"
	"github.com/Sumatoshi-tech/datalens/pkg/units"
)

// Server defaults.
const (
	DefaultMaxSessions   = 64
	DefaultSessionTTL    = 15 * time.Minute
	DefaultMaxChunkBytes = 64 * units.MiB

	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	shutdownTimeout     = 10 * time.Second
	minSweepInterval    = time.Second

	tracerName = "datalens"
)

// Options configure a Server. Zero values select defaults.
type Options struct {
	// Engine is the template for every session's engine.
	Engine      engine.Options
	Correlation correlation.Options

	MaxSessions   int
	SessionTTL    time.Duration
	MaxChunkBytes int64

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Logger *slog.Logger
	Tracer trace.Tracer
	RED    *observability.REDMetrics

	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// Server is the datalens HTTP host.
type Server struct {
	opts     Options
	sessions *sessionStore
	router   *chi.Mux
	logger   *slog.Logger
}

// New creates a Server with all routes registered.
func New(opts Options) *Server {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	if opts.MaxChunkBytes <= 0 {
		opts.MaxChunkBytes = DefaultMaxChunkBytes
	}

	if opts.Correlation.MaxRows == 0 {
		opts.Correlation.MaxRows = correlation.DefaultMaxRows
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}

	if opts.Engine.Tracer == nil {
		opts.Engine.Tracer = opts.Tracer
	}

	s := &Server{
		opts:     opts,
		sessions: newSessionStore(opts.MaxSessions),
		router:   chi.NewRouter(),
		logger:   opts.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	return s.sessions.len()
}

// Sweep discards sessions idle for longer than the session TTL and returns
// their ids.
func (s *Server) Sweep(ctx context.Context) []string {
	expired := s.sessions.sweep(ctx, s.sessions.now().Add(-s.opts.SessionTTL))

	for _, id := range expired {
		s.logger.InfoContext(observability.ContextWithSession(ctx, id), "session expired")
	}

	return expired
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return observability.HTTPMiddleware(s.opts.Tracer, s.opts.RED, next)
	})
}

func (s *Server) setupRoutes() {
	s.router.Method(http.MethodGet, "/healthz", observability.HealthHandler())
	s.router.Method(http.MethodGet, "/readyz", observability.ReadyHandler(observability.ReadyCheck{
		Name: "sessions",
		Check: func(context.Context) error {
			if s.sessions.full() {
				return ErrTooManySessions
			}

			return nil
		},
	}))

	if s.opts.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.opts.MetricsHandler)
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/{id}/chunks", s.handleProcessChunk)
		r.Post("/sessions/{id}/finalize", s.handleFinalize)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/detect", s.handleDetect)
		r.Post("/correlate", s.handleCorrelate)
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully and discards every open session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  orDefault(s.opts.ReadTimeout, defaultReadTimeout),
		WriteTimeout: orDefault(s.opts.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  orDefault(s.opts.IdleTimeout, defaultIdleTimeout),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go s.sweepLoop(ctx)

	errCh := make(chan error, 1)

	go func() {
		s.logger.InfoContext(ctx, "http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.sessions.closeAll(context.WithoutCancel(ctx))

		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	s.sessions.closeAll(shutdownCtx)

	serveErr := <-errCh
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", serveErr)
	}

	if shutdownErr != nil {
		return fmt.Errorf("http shutdown: %w", shutdownErr)
	}

	return nil
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(max(s.opts.SessionTTL/2, minSweepInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return d
}
