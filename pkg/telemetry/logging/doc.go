// Package logging configures structured logging and credential redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Component-scoped loggers sharing one configured handler
//   - Credential redaction for API keys and auth headers
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Configure the process-wide logger once at startup.
//	logger, err := logging.Setup(cfg.Logging, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	logger.Info("starting up")
//
//	// Components derive their own scoped logger.
//	log := logging.ForComponent("router")
//	log.Debug("classified message", "tier", "cheap")
//
// # Redaction
//
// Any request material that reaches a debug log goes through the
// redactor first:
//
//	logger.Debug("forwarding request",
//	    "headers", logging.RedactHeaders(req.Header),
//	)
//
// Credential headers (x-api-key, authorization, proxy-authorization,
// cookie) keep only a four character prefix. Key patterns embedded in
// other values are scrubbed:
//
//   - sk-ant-abc123xyz → sk-ant-***
//   - sk-abc123xyz → sk-***
//   - Bearer eyJhbGci... → Bearer ***
package logging
