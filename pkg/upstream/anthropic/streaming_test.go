package anthropic

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	testhelpers "mercator-hq/quaestor/internal/upstream"
)

func TestEventReaderSplitsEvents(t *testing.T) {
	frames := testhelpers.StreamEvents("Hello!", "claude-3-5-haiku-20241022", 42, 17)
	input := strings.Join(frames, "")

	reader := NewEventReader(strings.NewReader(input))

	wantTypes := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}

	var relayed strings.Builder
	for _, want := range wantTypes {
		event, err := reader.Next()
		if err != nil {
			t.Fatalf("Next failed at %s: %v", want, err)
		}
		if event.Type != want {
			t.Errorf("expected event type %q, got %q", want, event.Type)
		}
		relayed.Write(event.Raw)
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Fatalf("expected EOF after the last event, got %v", err)
	}

	// Relaying every Raw must reproduce the stream byte for byte.
	if relayed.String() != input {
		t.Error("concatenated raw events do not match the input stream")
	}
}

func TestEventReaderParsesData(t *testing.T) {
	input := "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"hi\"}}\n\n"

	reader := NewEventReader(strings.NewReader(input))
	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	var payload struct {
		Delta struct {
			Text string `json:"text"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("data did not parse: %v", err)
	}
	if payload.Delta.Text != "hi" {
		t.Errorf("expected delta text %q, got %q", "hi", payload.Delta.Text)
	}
}

func TestEventReaderPassesUnknownFramesThrough(t *testing.T) {
	input := ": keepalive comment\n\n" +
		"event: brand_new_event\ndata: {\"type\":\"brand_new_event\"}\n\n" +
		"data: {\"type\":\"unnamed\"}\n\n"

	reader := NewEventReader(strings.NewReader(input))

	var relayed strings.Builder
	var types []string
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unknown frames must not error: %v", err)
		}
		types = append(types, event.Type)
		relayed.Write(event.Raw)
	}

	if relayed.String() != input {
		t.Error("unknown frames were not relayed verbatim")
	}
	// The unnamed data-only frame falls back to the payload's type field.
	if len(types) != 3 || types[1] != "brand_new_event" || types[2] != "unnamed" {
		t.Errorf("unexpected event types: %v", types)
	}
}

func TestEventReaderFlushesTrailingEvent(t *testing.T) {
	// Stream cut off before the terminating blank line.
	input := "event: message_stop\ndata: {\"type\":\"message_stop\"}\n"

	reader := NewEventReader(strings.NewReader(input))

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("expected the partial event, got %v", err)
	}
	if event.Type != "message_stop" {
		t.Errorf("expected message_stop, got %q", event.Type)
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestEventReaderEmptyStream(t *testing.T) {
	reader := NewEventReader(strings.NewReader(""))
	if _, err := reader.Next(); err != io.EOF {
		t.Fatalf("expected EOF on an empty stream, got %v", err)
	}
}

func TestEventReaderReadFailure(t *testing.T) {
	broken := io.MultiReader(
		strings.NewReader("event: message_start\n"),
		&failingReader{err: errors.New("connection reset")},
	)

	reader := NewEventReader(broken)
	_, err := reader.Next()
	if err == nil {
		t.Fatal("expected an error from the broken stream")
	}
	if err == io.EOF {
		t.Fatal("a read failure must not be reported as EOF")
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestUsageTrackerCollectsTokens(t *testing.T) {
	frames := testhelpers.StreamEvents("Hello!", "claude-3-5-haiku-20241022", 42, 17)
	reader := NewEventReader(strings.NewReader(strings.Join(frames, "")))

	tracker := &UsageTracker{}
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		tracker.Observe(event)
	}

	usage := tracker.Usage()
	if usage.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("expected model from message_start, got %q", usage.Model)
	}
	if usage.InputTokens != 42 {
		t.Errorf("expected 42 input tokens, got %d", usage.InputTokens)
	}
	// The message_delta count supersedes the message_start placeholder.
	if usage.OutputTokens != 17 {
		t.Errorf("expected 17 output tokens, got %d", usage.OutputTokens)
	}
	if !usage.Completed {
		t.Error("expected Completed after message_stop")
	}
}

func TestUsageTrackerWithoutStop(t *testing.T) {
	frames := testhelpers.StreamEvents("Hello!", "claude-3-5-haiku-20241022", 42, 17)
	// Drop message_stop to simulate a stream cut short.
	frames = frames[:len(frames)-1]

	reader := NewEventReader(strings.NewReader(strings.Join(frames, "")))
	tracker := &UsageTracker{}
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		tracker.Observe(event)
	}

	usage := tracker.Usage()
	if usage.Completed {
		t.Error("expected Completed to be false without message_stop")
	}
	if usage.InputTokens != 42 || usage.OutputTokens != 17 {
		t.Errorf("partial streams still carry their counts, got %+v", usage)
	}
}

func TestUsageTrackerIgnoresMalformedEvents(t *testing.T) {
	tracker := &UsageTracker{}
	tracker.Observe(&StreamEvent{Type: "message_delta", Data: []byte("{not json")})
	tracker.Observe(&StreamEvent{Type: "message_start", Data: nil})

	usage := tracker.Usage()
	if usage.InputTokens != 0 || usage.OutputTokens != 0 || usage.Completed {
		t.Errorf("malformed events must not change the accounting: %+v", usage)
	}
}

func TestUsageFromResponse(t *testing.T) {
	resp := &MessagesResponse{
		Model: "claude-sonnet-4-20250514",
		Usage: TokenUsage{InputTokens: 100, OutputTokens: 50},
	}

	usage := UsageFromResponse(resp)
	if usage.Model != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected model %q", usage.Model)
	}
	if usage.InputTokens != 100 || usage.OutputTokens != 50 {
		t.Errorf("unexpected counts: %+v", usage)
	}
	if !usage.Completed {
		t.Error("non-streaming responses are always complete")
	}
}
