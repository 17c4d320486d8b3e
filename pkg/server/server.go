// Package server provides the HTTP server for the budget proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/quaestor/pkg/config"
	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/pricing"
	"mercator-hq/quaestor/pkg/proxy"
	"mercator-hq/quaestor/pkg/proxy/handlers"
	"mercator-hq/quaestor/pkg/proxy/middleware"
	"mercator-hq/quaestor/pkg/routing"
	"mercator-hq/quaestor/pkg/telemetry/metrics"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

// Components are the wired dependencies the server serves requests with.
type Components struct {
	// Router picks a tier for each query
	Router *routing.Router

	// Enforcer applies budget policy to routed tiers
	Enforcer *enforcement.Enforcer

	// Ledger records usage and serves budget snapshots
	Ledger handlers.UsageLedger

	// Upstream is the API client requests are forwarded through
	Upstream handlers.Upstream

	// Pricing converts token counts to cost
	Pricing *pricing.Table

	// Models maps tiers to concrete model IDs
	Models proxy.ModelMap

	// Credentials fill in when the caller sends none. Usually empty.
	Credentials anthropic.Credentials

	// Metrics is the telemetry collector. Nil disables /metrics and
	// all recording.
	Metrics *metrics.Collector

	// Version is the build version reported by /health
	Version string
}

// Server is the budget proxy's HTTP server.
type Server struct {
	config       config.ServerConfig
	components   Components
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new proxy server.
func NewServer(cfg config.ServerConfig, components Components) *Server {
	return &Server{
		config:       cfg,
		components:   components,
		shutdownChan: make(chan struct{}),
		isRunning:    false,
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

	// WriteTimeout stays at its configured value, zero by default:
	// streaming responses run as long as the upstream allows.
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress(),
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", s.config.ListenAddress(),
			"metrics_enabled", s.components.Metrics != nil,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal or error
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

// Shutdown gracefully shuts down the server. In-flight requests,
// including active streams, get the configured shutdown timeout to
// finish.
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

// setupRoutes configures HTTP routes and middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	messagesHandler := &handlers.MessagesHandler{
		Router:      s.components.Router,
		Enforcer:    s.components.Enforcer,
		Ledger:      s.components.Ledger,
		Upstream:    s.components.Upstream,
		Pricing:     s.components.Pricing,
		Models:      s.components.Models,
		Credentials: s.components.Credentials,
		Metrics:     s.components.Metrics,
	}
	budgetHandler := handlers.NewBudgetHandler(s.components.Ledger)
	usageHandler := handlers.NewUsageHandler(s.components.Ledger)
	healthHandler := handlers.NewHealthHandler("quaestor", s.components.Version)

	mux.Handle("/v1/messages", messagesHandler)
	mux.Handle("/v1/budget", budgetHandler)
	mux.Handle("/v1/usage", usageHandler)
	mux.Handle("/health", healthHandler)
	if s.components.Metrics != nil {
		mux.Handle("/metrics", s.components.Metrics.Handler())
	}

	// Apply middleware chain (innermost to outermost)
	var handler http.Handler = mux
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

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
