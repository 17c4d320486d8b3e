package anthropic

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"mercator-hq/quaestor/pkg/upstream"
)

// maxEventSize caps a single SSE event. Large content deltas exceed
// bufio's default 64KB token limit.
const maxEventSize = 1024 * 1024

// StreamEvent is one Server-Sent Event from a streaming response.
type StreamEvent struct {
	// Type is the SSE event name ("message_start", "content_block_delta", ...)
	Type string

	// Data is the JSON payload from the data field
	Data []byte

	// Raw holds the event exactly as it should be relayed downstream,
	// trailing blank line included
	Raw []byte
}

// EventReader splits a Server-Sent Events stream into events while
// preserving the bytes for verbatim relay. Unknown event types and SSE
// comment lines pass through untouched; a frame the reader cannot parse
// never interrupts the relay.
type EventReader struct {
	scanner *bufio.Scanner
	closed  bool
}

// NewEventReader creates a reader over a streaming response body.
func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &EventReader{scanner: scanner}
}

// Next reads the next complete event. It returns io.EOF when the stream
// ends and *upstream.StreamParseError if the underlying read fails.
func (r *EventReader) Next() (*StreamEvent, error) {
	if r.closed {
		return nil, io.EOF
	}

	var (
		raw       bytes.Buffer
		eventType string
		dataLines []string
		sawField  bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()
		raw.WriteString(line)
		raw.WriteString("\n")

		// Empty line marks end of event
		if line == "" {
			if sawField {
				break
			}
			continue
		}
		sawField = true

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
		// Other SSE fields (id, retry) and comments relay untouched
	}

	if err := r.scanner.Err(); err != nil {
		r.closed = true
		return nil, &upstream.StreamParseError{
			Message: "failed to read stream",
			Cause:   err,
		}
	}

	if !sawField {
		r.closed = true
		return nil, io.EOF
	}

	event := &StreamEvent{
		Type: eventType,
		Raw:  raw.Bytes(),
	}
	if len(dataLines) > 0 {
		event.Data = []byte(strings.Join(dataLines, "\n"))
	}

	// Anthropic names every event on the SSE level, but fall back to the
	// payload's type field if the name is missing.
	if event.Type == "" && len(event.Data) > 0 {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(event.Data, &probe); err == nil {
			event.Type = probe.Type
		}
	}

	return event, nil
}

// UsageTracker accumulates token usage from the events of one stream.
//
// The API reports the model and input token count in message_start and the
// final output token count in a message_delta near the end of the stream.
// Later counts supersede earlier ones.
type UsageTracker struct {
	usage Usage
}

// Usage is the token accounting extracted from one exchange.
type Usage struct {
	// Model is the concrete model that served the request
	Model string

	// InputTokens is the number of input tokens consumed
	InputTokens int64

	// OutputTokens is the number of output tokens generated
	OutputTokens int64

	// Completed reports whether a message_stop event was seen
	Completed bool
}

// Observe inspects one event. Events that fail to parse are ignored so a
// malformed frame costs accounting accuracy, not the relay.
func (t *UsageTracker) Observe(event *StreamEvent) {
	switch event.Type {
	case "message_start":
		var payload struct {
			Message struct {
				Model string     `json:"model"`
				Usage TokenUsage `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		if payload.Message.Model != "" {
			t.usage.Model = payload.Message.Model
		}
		if payload.Message.Usage.InputTokens > 0 {
			t.usage.InputTokens = payload.Message.Usage.InputTokens
		}
		if payload.Message.Usage.OutputTokens > 0 {
			t.usage.OutputTokens = payload.Message.Usage.OutputTokens
		}

	case "message_delta":
		var payload struct {
			Usage TokenUsage `json:"usage"`
		}
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		if payload.Usage.InputTokens > 0 {
			t.usage.InputTokens = payload.Usage.InputTokens
		}
		if payload.Usage.OutputTokens > 0 {
			t.usage.OutputTokens = payload.Usage.OutputTokens
		}

	case "message_stop":
		t.usage.Completed = true
	}
}

// Usage returns the counts observed so far.
func (t *UsageTracker) Usage() Usage {
	return t.usage
}

// UsageFromResponse builds the same accounting from a non-streaming
// response body.
func UsageFromResponse(resp *MessagesResponse) Usage {
	return Usage{
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Completed:    true,
	}
}
