// Package proxy provides the request-side plumbing for the budget gateway.
//
// The gateway sits between a local CLI client and the Anthropic Messages
// API. This package holds what the HTTP handlers share: shallow request
// parsing, the raw-preserving model rewrite, header filtering, credential
// extraction, the tier-to-model map, and the error envelope written to
// clients.
//
// # Request Parsing
//
// The gateway never re-interprets client payloads. ParseRequest reads only
// the fields routing needs (model, stream, max_tokens, and the last user
// message) and keeps every other field as the raw bytes the client sent:
//
//	parsed, err := proxy.ParseRequest(body)
//	if err != nil {
//	    // 400 with the Anthropic error envelope
//	}
//	body, err = parsed.RewriteModel("claude-3-5-haiku-20241022")
//
// RewriteModel replaces the model field and nothing else. Unknown fields,
// nested structures, and field ordering quirks inside values all survive
// the round trip untouched.
//
// # Header Handling
//
// FilterRequestHeaders drops hop-by-hop headers, Host, Content-Length, and
// the gateway's own control header before forwarding; everything else
// (credentials, anthropic-version, beta flags) passes through verbatim.
// RelayResponseHeaders does the same on the way back.
//
// # Error Envelope
//
// All gateway-originated errors use the Anthropic error shape so clients
// need only one error parser:
//
//	{"type": "error", "error": {"type": "budget_exceeded_error", "message": "..."}}
//
// Upstream error responses are not re-wrapped; they relay to the client
// byte for byte.
package proxy
