package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/instrument"
	"storefront/beacon/pkg/proxy/middleware"
	"storefront/beacon/pkg/telemetry/health"
	"storefront/beacon/pkg/telemetry/metrics"
)

// Health endpoint paths.
const (
	HealthPath  = "/health"
	ReadyPath   = "/health/ready"
	VersionPath = "/health/version"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options holds the collaborators of a Server. Only Config and Metrics are
// required.
type Options struct {
	Config *config.Config

	// Metrics receives the active connection count.
	Metrics *metrics.HTTPMetrics

	// Exporter serves the metrics endpoint. Nil disables it.
	Exporter *metrics.Exporter

	// Instrumenter wraps application routes. Nil serves them uninstrumented.
	Instrumenter *instrument.Instrumenter

	// Probe answers the health endpoint. Nil reports a healthy sidecar
	// without a dependency.
	Probe *health.Probe

	// Monitor answers the readiness endpoint. Nil probes on every request.
	Monitor *health.Monitor

	// Upstream serves every route not owned by beacon. Nil answers 404.
	Upstream http.Handler

	Build  BuildInfo
	Logger *slog.Logger
}

// Server is the beacon HTTP server.
type Server struct {
	opts    Options
	config  *config.ServerConfig
	handler http.Handler
	logger  *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once

	mu        sync.RWMutex
	isRunning bool
	conns     map[net.Conn]struct{}
}

// New creates a server and builds its routes.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Metrics == nil {
		return nil, errors.New("server: metrics are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Probe == nil {
		opts.Probe = health.NewProbe(nil, opts.Config.Telemetry.Health.Timeout,
			opts.Config.Telemetry.Health.Environment, opts.Build.Version)
	}
	if opts.Monitor == nil {
		monitor, err := health.NewMonitor(opts.Probe, "", opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Monitor = monitor
	}

	s := &Server{
		opts:   opts,
		config: &opts.Config.Server,
		logger: opts.Logger.With("component", "server"),
		conns:  make(map[net.Conn]struct{}),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ConnState:      s.trackConn,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", ln.Addr().String(),
			"metrics_path", s.opts.Config.Telemetry.Metrics.Path,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			s.setRunning(false)
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv := s.httpServer
		s.mu.RUnlock()
		if srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.setRunning(false)
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
}

// trackConn keeps the active connection gauge in step with the server's
// connection states. Hijacked connections leave the server's control and
// are no longer counted.
func (s *Server) trackConn(conn net.Conn, state http.ConnState) {
	s.mu.Lock()
	switch state {
	case http.StateNew:
		s.conns[conn] = struct{}{}
	case http.StateClosed, http.StateHijacked:
		delete(s.conns, conn)
	default:
		s.mu.Unlock()
		return
	}
	count := len(s.conns)
	s.mu.Unlock()

	s.opts.Metrics.UpdateActiveConnections(count)
}

// setupRoutes configures HTTP routes and the middleware chain. Telemetry
// routes are served by beacon itself and never instrumented; everything
// else is instrumented and forwarded upstream.
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	// Recovery is outermost so that instrumentation sees the panic first
	// and records the request as a 500.
	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(s.logger))

	if s.opts.Exporter != nil && s.opts.Config.Telemetry.Metrics.Enabled {
		r.Handle(s.opts.Config.Telemetry.Metrics.Path, s.opts.Exporter.Handler())
	}
	r.Get(HealthPath, s.opts.Probe.Handler())
	r.Head(HealthPath, s.opts.Probe.Handler())
	r.Get(ReadyPath, s.opts.Monitor.ReadinessHandler())
	r.Head(ReadyPath, s.opts.Monitor.ReadinessHandler())
	r.Get(VersionPath, health.VersionHandler(s.opts.Build.Version, s.opts.Build.Commit, s.opts.Build.BuildTime))

	upstream := s.opts.Upstream
	if upstream == nil {
		upstream = http.HandlerFunc(http.NotFound)
	}

	r.Group(func(r chi.Router) {
		if s.opts.Instrumenter != nil {
			r.Use(s.opts.Instrumenter.Middleware)
		}
		r.Handle("/*", upstream)
		r.NotFound(upstream.ServeHTTP)
		r.MethodNotAllowed(upstream.ServeHTTP)
	})

	return r
}
