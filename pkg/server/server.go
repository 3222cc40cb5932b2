// Package server provides the HTTP front end: routing, middleware, TLS,
// and graceful shutdown around the forwarding core.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/proxy"
	"mamba-hq/mamba/pkg/proxy/middleware"
	"mamba-hq/mamba/pkg/telemetry/metrics"
)

// Server is the HTTP proxy server.
type Server struct {
	config         *config.ServerConfig
	securityConfig *config.SecurityConfig
	metricsConfig  *config.MetricsConfig
	forwarder      *proxy.Forwarder
	collector      *metrics.Collector
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	mu             sync.RWMutex
	isRunning      bool
}

// NewServer creates a proxy server around the given forwarder.
// The metrics collector may be nil when the metrics endpoint is disabled.
func NewServer(cfg *config.ServerConfig, securityCfg *config.SecurityConfig, metricsCfg *config.MetricsConfig, forwarder *proxy.Forwarder, collector *metrics.Collector) *Server {
	return &Server{
		config:         cfg,
		securityConfig: securityCfg,
		metricsConfig:  metricsCfg,
		forwarder:      forwarder,
		collector:      collector,
		shutdownChan:   make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	if s.securityConfig.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", s.config.ListenAddress,
			"tls_enabled", s.securityConfig.TLS.Enabled,
		)

		var err error
		if s.securityConfig.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(
				s.securityConfig.TLS.CertFile,
				s.securityConfig.TLS.KeyFile,
			)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

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

// Shutdown gracefully shuts down the server. In-flight synthesized streams
// get the full shutdown timeout to finish their frames.
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

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain. Every path
// not claimed by an operational endpoint is forwarded upstream, so clients
// can call any API shape the gateway supports.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	if s.metricsConfig.Enabled && s.collector != nil {
		path := s.metricsConfig.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.collector.Handler())
	}
	mux.Handle("/", s.forwarder)

	var handler http.Handler = mux
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// handleHealth reports liveness. The proxy holds no upstream connections at
// rest, so liveness is the only meaningful signal.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// configureTLS configures TLS settings.
func (s *Server) configureTLS() (*tls.Config, error) {
	if s.securityConfig.TLS.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if s.securityConfig.TLS.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}

	if _, err := os.Stat(s.securityConfig.TLS.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", s.securityConfig.TLS.CertFile)
	}
	if _, err := os.Stat(s.securityConfig.TLS.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", s.securityConfig.TLS.KeyFile)
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
	}, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Stop requests shutdown from another goroutine.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}
