// Package anthropic implements the client for the Anthropic Messages API.
//
// The gateway uses it in two modes:
//
//   - Forward relays a raw request and hands back the raw *http.Response,
//     whatever its status. The proxy streams the body downstream byte for
//     byte; the client only steps in for transport failures (502) and for
//     transparent 429 retries.
//   - Complete sends a JSON request and decodes the JSON response. The
//     routing classifier uses this path.
//
// # Forwarding
//
//	client := anthropic.NewClient(anthropic.Config{}, logger)
//	resp, err := client.Forward(ctx, "POST", "/v1/messages", body, headers)
//	if err != nil {
//	    // *upstream.UpstreamError: answer 502
//	}
//	defer resp.Body.Close()
//	// relay resp verbatim, any status included
//
// # Streaming
//
// Forwarded streaming responses are Server-Sent Events. EventReader splits
// the body into events while preserving the exact bytes for relay, and
// UsageTracker watches the events for token counts:
//
//	reader := anthropic.NewEventReader(resp.Body)
//	tracker := &anthropic.UsageTracker{}
//	for {
//	    ev, err := reader.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    tracker.Observe(ev)
//	    w.Write(ev.Raw)
//	}
//	usage := tracker.Usage()
//
// # Credentials
//
// The client holds no API key. Every call carries the caller's own
// credentials (x-api-key or Authorization), taken from the inbound request.
// The required anthropic-version header is added when the caller did not
// set one.
package anthropic
