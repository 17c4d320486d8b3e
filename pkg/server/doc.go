// Package server provides the HTTP server for the budget proxy.
//
// This package ties together the proxy components (handlers, middleware,
// routing, enforcement) and provides server lifecycle management
// including start and graceful shutdown.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Sets up HTTP routes and handlers
//   - Chains middleware for cross-cutting concerns
//   - Manages graceful shutdown
//   - Handles OS signals (SIGTERM, SIGINT)
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "mercator-hq/quaestor/pkg/config"
//	    "mercator-hq/quaestor/pkg/server"
//	)
//
//	cfg, err := config.LoadConfigWithEnvOverrides(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := server.NewServer(cfg.Server, server.Components{
//	    Router:   router,
//	    Enforcer: enforcer,
//	    Ledger:   usageLedger,
//	    Upstream: client,
//	    Pricing:  table,
//	    Models:   models,
//	})
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles graceful shutdown automatically when receiving
// SIGTERM or SIGINT, or when its context is cancelled:
//
//	if err := srv.Shutdown(context.Background()); err != nil {
//	    log.Error("shutdown error", "error", err)
//	}
//
// The shutdown process:
//  1. Stops accepting new connections
//  2. Waits for active requests, streams included, up to the shutdown timeout
//  3. Forces connection closure if the timeout is exceeded
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - POST /v1/messages - Proxied Messages API (streaming and non-streaming)
//   - GET /v1/budget - Current budget snapshot
//   - GET /v1/usage - Recent usage records
//   - GET /health - Liveness probe (always returns 200)
//   - GET /metrics - Prometheus metrics (only when metrics are enabled)
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//  1. RequestID: Generates unique request ID for tracing
//  2. Logging: Logs request/response details
//  3. Recovery: Recovers from panics and returns 500 error
//
// There is no outer timeout middleware: streaming responses run as long
// as the upstream allows, and the upstream client timeout bounds them.
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently
// from multiple goroutines.
package server
