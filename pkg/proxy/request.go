package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mercator-hq/quaestor/pkg/pricing"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// OverrideHeader names a tier or model family alias to route to,
	// bypassing the heuristics.
	OverrideHeader = "x-model-override"

	// APIKeyHeader is the Anthropic API key header.
	APIKeyHeader = "x-api-key"

	// AuthorizationHeader carries an OAuth bearer token.
	AuthorizationHeader = "Authorization"
)

// filteredRequestHeaders are stripped from forwarded requests: the upstream
// connection computes its own values for these.
var filteredRequestHeaders = map[string]bool{
	"host":           true,
	"content-length": true,
}

// hopByHopHeaders are connection-scoped per RFC 9110 and never forwarded
// in either direction.
var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// ParsedRequest is the shallow view of a Messages API request. The gateway
// reads only what routing and relay need; everything else stays as raw
// bytes and is never re-interpreted.
type ParsedRequest struct {
	// Model is the model the client asked for (before rewriting)
	Model string

	// Stream reports whether the client wants an SSE response
	Stream bool

	// MaxTokens is the client's output budget
	MaxTokens int

	// Prompt is the text of the last user message, the input to routing
	Prompt string

	// fields holds the request body for the raw-preserving model rewrite
	fields map[string]json.RawMessage
}

// ParseRequest parses a request body shallowly. The body must be a JSON
// object with a model and a non-empty messages array.
func ParseRequest(body []byte) (*ParsedRequest, error) {
	if len(body) >= MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &RequestError{Message: "invalid JSON", Cause: err}
	}

	parsed := &ParsedRequest{fields: fields}

	if raw, ok := fields["model"]; ok {
		if err := json.Unmarshal(raw, &parsed.Model); err != nil {
			return nil, &RequestError{Message: "model must be a string", Cause: err}
		}
	}
	if parsed.Model == "" {
		return nil, &RequestError{Message: "model is required"}
	}

	if raw, ok := fields["stream"]; ok {
		if err := json.Unmarshal(raw, &parsed.Stream); err != nil {
			return nil, &RequestError{Message: "stream must be a boolean", Cause: err}
		}
	}

	if raw, ok := fields["max_tokens"]; ok {
		if err := json.Unmarshal(raw, &parsed.MaxTokens); err != nil {
			return nil, &RequestError{Message: "max_tokens must be a number", Cause: err}
		}
	}

	rawMessages, ok := fields["messages"]
	if !ok {
		return nil, &RequestError{Message: "messages is required"}
	}
	var messages []messageView
	if err := json.Unmarshal(rawMessages, &messages); err != nil {
		return nil, &RequestError{Message: "messages must be an array of messages", Cause: err}
	}
	if len(messages) == 0 {
		return nil, &RequestError{Message: "messages must not be empty"}
	}

	parsed.Prompt = lastUserText(messages)

	return parsed, nil
}

// RewriteModel returns the request body with only the model field replaced.
// All other fields pass through as the raw bytes the client sent.
func (p *ParsedRequest) RewriteModel(model string) ([]byte, error) {
	modelJSON, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	out := make(map[string]json.RawMessage, len(p.fields))
	for key, value := range p.fields {
		out[key] = value
	}
	out["model"] = modelJSON

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild request body: %w", err)
	}
	return body, nil
}

// messageView is the slice of a message the router needs.
type messageView struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// lastUserText returns the text of the last user message. Content is
// either a plain string or an array of content blocks; text blocks are
// concatenated, other block types are skipped.
func lastUserText(messages []messageView) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		return contentText(messages[i].Content)
	}
	return ""
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var parts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// CredentialsFrom lifts the caller's API credentials off the request.
func CredentialsFrom(h http.Header) anthropic.Credentials {
	return anthropic.Credentials{
		APIKey:        h.Get(APIKeyHeader),
		Authorization: h.Get(AuthorizationHeader),
	}
}

// ManualOverride reads the x-model-override header. The second return is
// false when the header is absent; an unparseable value returns an error
// so the client learns about the typo instead of silently getting routed.
func ManualOverride(h http.Header) (pricing.Tier, bool, error) {
	value := h.Get(OverrideHeader)
	if value == "" {
		return "", false, nil
	}
	tier, err := pricing.ParseTier(value)
	if err != nil {
		return "", false, &RequestError{
			Message: fmt.Sprintf("invalid %s value %q: want a tier (cheap, mid, premium) or alias (haiku, sonnet, opus)", OverrideHeader, value),
		}
	}
	return tier, true, nil
}

// FilterRequestHeaders copies headers for forwarding, dropping hop-by-hop
// headers, Host, Content-Length, and the gateway's own control header.
func FilterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, values := range src {
		lower := strings.ToLower(key)
		if hopByHopHeaders[lower] || filteredRequestHeaders[lower] || lower == OverrideHeader {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
	return dst
}

// RelayResponseHeaders copies upstream response headers to the client,
// dropping hop-by-hop headers and Content-Length (the relay re-frames the
// body).
func RelayResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		lower := strings.ToLower(key)
		if hopByHopHeaders[lower] || lower == "content-length" {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
