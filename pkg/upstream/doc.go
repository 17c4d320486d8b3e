// Package upstream defines the error types shared by upstream API clients.
//
// The proxy talks to exactly one upstream (the Anthropic Messages API), but
// the error vocabulary lives here so that handler code can type-switch on
// failures without importing the concrete client package.
//
// Error types map onto the responses the gateway sends downstream:
//
//   - UpstreamError (connect failure, timeout) -> 502 Bad Gateway
//   - RateLimitError (429 after retries)      -> 429 relayed to the client
//   - AuthError (401/403 from the API)        -> status relayed to the client
//   - StreamParseError (mid-stream read failure)   -> stream terminated
//
// All types carry their cause and support errors.As / errors.Unwrap.
package upstream
