// Package upstream provides a mock Anthropic Messages API for tests.
//
// The mock records every request it receives (method, headers, body) so
// tests can assert relay fidelity, and serves replies from a one-shot
// queue so retry sequences like 429, 429, 200 can be scripted.
package upstream

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Reply defines one canned response.
type Reply struct {
	// StatusCode is the HTTP status to send (default 200)
	StatusCode int

	// Headers are extra response headers
	Headers map[string]string

	// Body is the response body (ignored when Events is set)
	Body string

	// Events are SSE frames sent one flush at a time. Setting this makes
	// the reply a text/event-stream response.
	Events []string

	// Delay is slept before responding
	Delay time.Duration
}

// RecordedRequest is one request the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// MockAPI is a scripted stand-in for the Anthropic API.
type MockAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	queue    []Reply
	fallback Reply
	requests []RecordedRequest
}

// NewMockAPI starts the mock server. The zero fallback answers 200 with an
// empty body until replies are enqueued or a fallback is set.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		fallback: Reply{StatusCode: http.StatusOK},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server's base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts the mock server down.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Enqueue adds a one-shot reply. Queued replies are consumed in order
// before the fallback is used.
func (m *MockAPI) Enqueue(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, replies...)
}

// SetFallback sets the reply used once the queue is empty.
func (m *MockAPI) SetFallback(reply Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = reply
}

// Requests returns a copy of every request received so far.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil if none arrived.
func (m *MockAPI) LastRequest() *RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// RequestCount returns the number of requests received.
func (m *MockAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	var reply Reply
	if len(m.queue) > 0 {
		reply = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		reply = m.fallback
	}
	m.mu.Unlock()

	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}

	for key, value := range reply.Headers {
		w.Header().Set(key, value)
	}

	if len(reply.Events) > 0 {
		m.streamEvents(w, reply)
		return
	}

	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if w.Header().Get("Content-Type") == "" && reply.Body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if reply.Body != "" {
		_, _ = w.Write([]byte(reply.Body))
	}
}

func (m *MockAPI) streamEvents(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	for _, frame := range reply.Events {
		fmt.Fprint(w, frame)
		flusher.Flush()
	}
}
