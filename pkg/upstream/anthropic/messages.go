package anthropic

import (
	"encoding/json"
	"strings"
)

// MessagesRequest is the request body for POST /v1/messages.
// Only the fields the gateway itself sends are modeled; relayed client
// requests pass through as raw bytes and never round-trip this struct.
type MessagesRequest struct {
	// Model is the model identifier
	Model string `json:"model"`

	// MaxTokens is the maximum tokens to generate (required by the API)
	MaxTokens int `json:"max_tokens"`

	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// System is the system prompt (optional)
	System string `json:"system,omitempty"`

	// Temperature controls sampling randomness (optional)
	Temperature *float64 `json:"temperature,omitempty"`

	// Stream requests a Server-Sent Events response
	Stream bool `json:"stream,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	// Role is "user" or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// MessagesResponse is the response body of a non-streaming completion.
type MessagesResponse struct {
	// ID is the message identifier
	ID string `json:"id"`

	// Type is "message"
	Type string `json:"type"`

	// Role is "assistant"
	Role string `json:"role"`

	// Model is the concrete model that served the request
	Model string `json:"model"`

	// Content is the list of content blocks
	Content []ContentBlock `json:"content"`

	// StopReason indicates why generation stopped
	StopReason string `json:"stop_reason"`

	// Usage is the token accounting for the exchange
	Usage TokenUsage `json:"usage"`
}

// ContentBlock is a single content block in a response.
type ContentBlock struct {
	// Type is the block type ("text", "tool_use", ...)
	Type string `json:"type"`

	// Text is the text content (for type "text")
	Text string `json:"text,omitempty"`
}

// TokenUsage is the token accounting reported by the API.
type TokenUsage struct {
	// InputTokens is the number of input tokens consumed
	InputTokens int64 `json:"input_tokens"`

	// OutputTokens is the number of output tokens generated
	OutputTokens int64 `json:"output_tokens"`
}

// Text returns the concatenated text blocks of the response.
func (r *MessagesResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// errorEnvelope is the error body shape returned by the API:
//
//	{"type": "error", "error": {"type": "...", "message": "..."}}
type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseErrorBody extracts the error type and message from an error response
// body, falling back to the raw body when it is not the standard envelope.
func parseErrorBody(body []byte) (errType, message string) {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Type, envelope.Error.Message
	}
	return "", strings.TrimSpace(string(body))
}
