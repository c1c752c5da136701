package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/proxy/middleware"
	"curvelaboratory/promptgateway/pkg/telemetry/health"
	"curvelaboratory/promptgateway/pkg/telemetry/tracing"
)

// Routes are the handlers mounted on the listener.
type Routes struct {
	// Gateway serves every path not claimed by another route.
	Gateway http.Handler

	// Metrics is mounted on the configured metrics path when non-nil.
	Metrics http.Handler

	// Checker backs /health and /ready when non-nil.
	Checker *health.Checker

	Version health.VersionInfo
}

// Server is the gateway's HTTP listener.
type Server struct {
	config     *config.ListenerConfig
	telemetry  *config.TelemetryConfig
	tlsConfig  *tls.Config
	tracer     *tracing.Tracer
	routes     Routes
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server. tlsConfig is nil for plain HTTP; tracer may
// be nil.
func NewServer(cfg *config.Config, routes Routes, tlsConfig *tls.Config, tracer *tracing.Tracer) *Server {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &Server{
		config:       &cfg.Listener,
		telemetry:    &cfg.Telemetry,
		tlsConfig:    tlsConfig,
		tracer:       tracer,
		routes:       routes,
		shutdownChan: make(chan struct{}),
	}
}

// Start listens and serves until ctx is done, a shutdown signal arrives,
// or Stop is called. It then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		TLSConfig:      s.tlsConfig,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway listener",
			"address", ln.Addr().String(),
			"tls_enabled", s.tlsConfig != nil,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway listener stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.routes.Checker != nil {
		health.Register(mux, s.routes.Checker, s.routes.Version)
	}
	if s.routes.Metrics != nil && s.telemetry.Metrics.Enabled {
		mux.Handle(s.telemetry.Metrics.Path, s.routes.Metrics)
	}
	if s.routes.Gateway != nil {
		mux.Handle("/", s.routes.Gateway)
	}

	var handler http.Handler = mux
	handler = middleware.BodyLimitMiddleware(s.config.MaxBodyBytes)(handler)
	handler = middleware.CORSMiddleware(s.config.CORS)(handler)
	handler = tracing.HTTPMiddleware(s.tracer)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listener address once Start has begun serving.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
