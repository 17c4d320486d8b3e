// Package middleware provides HTTP middleware for the gateway.
//
// Available middleware:
//
//   - RequestIDMiddleware: assigns a unique ID to each request, honoring a
//     client-provided X-Request-ID
//   - LoggingMiddleware: structured request/response logging with latency
//   - RecoveryMiddleware: converts handler panics into 500 responses in the
//     Anthropic error envelope
//
// Middleware is composed outermost-first:
//
//	handler = middleware.RequestIDMiddleware(
//	    middleware.LoggingMiddleware(
//	        middleware.RecoveryMiddleware(mux)))
//
// The request ID and start time ride the request context; handlers read
// them with GetRequestID and GetStartTime.
package middleware
