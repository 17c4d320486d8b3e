package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MessagesBody builds a non-streaming Messages API response body.
func MessagesBody(text, model string, inputTokens, outputTokens int64) string {
	body := map[string]interface{}{
		"id":   "msg_mock",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]interface{}{
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
		},
	}
	bytes, _ := json.Marshal(body)
	return string(bytes)
}

// TextReply builds a 200 reply carrying a text completion.
func TextReply(text, model string, inputTokens, outputTokens int64) Reply {
	return Reply{
		StatusCode: http.StatusOK,
		Body:       MessagesBody(text, model, inputTokens, outputTokens),
	}
}

// ErrorBody builds the standard API error envelope.
func ErrorBody(errType, message string) string {
	body := map[string]interface{}{
		"type": "error",
		"error": map[string]interface{}{
			"type":    errType,
			"message": message,
		},
	}
	bytes, _ := json.Marshal(body)
	return string(bytes)
}

// ErrorReply builds an error reply with the standard envelope.
func ErrorReply(statusCode int, errType, message string) Reply {
	return Reply{
		StatusCode: statusCode,
		Body:       ErrorBody(errType, message),
	}
}

// AuthErrorReply builds a 401 invalid key reply.
func AuthErrorReply() Reply {
	return ErrorReply(http.StatusUnauthorized, "authentication_error", "invalid x-api-key")
}

// RateLimitReply builds a 429 reply, with a Retry-After header when
// retryAfterSeconds is positive.
func RateLimitReply(retryAfterSeconds int) Reply {
	reply := ErrorReply(http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded")
	if retryAfterSeconds > 0 {
		reply.Headers = map[string]string{
			"Retry-After": fmt.Sprintf("%d", retryAfterSeconds),
		}
	}
	return reply
}

// OverloadedReply builds the 529 overloaded reply the API sends under load.
func OverloadedReply() Reply {
	return ErrorReply(529, "overloaded_error", "overloaded")
}

// Event formats one SSE frame.
func Event(eventType string, data interface{}) string {
	bytes, _ := json.Marshal(data)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(bytes))
}

// PingEvent builds the keepalive event the API interleaves into streams.
func PingEvent() string {
	return Event("ping", map[string]interface{}{"type": "ping"})
}

// StreamEvents builds the canonical event sequence of a streaming
// completion: message_start through message_stop with the given text split
// into one content block.
func StreamEvents(text, model string, inputTokens, outputTokens int64) []string {
	return []string{
		Event("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id":            "msg_mock",
				"type":          "message",
				"role":          "assistant",
				"model":         model,
				"content":       []interface{}{},
				"stop_reason":   nil,
				"stop_sequence": nil,
				"usage": map[string]interface{}{
					"input_tokens":  inputTokens,
					"output_tokens": 1,
				},
			},
		}),
		Event("content_block_start", map[string]interface{}{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		}),
		Event("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": text},
		}),
		Event("content_block_stop", map[string]interface{}{
			"type":  "content_block_stop",
			"index": 0,
		}),
		Event("message_delta", map[string]interface{}{
			"type":  "message_delta",
			"delta": map[string]interface{}{"stop_reason": "end_turn", "stop_sequence": nil},
			"usage": map[string]interface{}{"output_tokens": outputTokens},
		}),
		Event("message_stop", map[string]interface{}{"type": "message_stop"}),
	}
}

// StreamReply builds a streaming reply with the canonical event sequence.
func StreamReply(text, model string, inputTokens, outputTokens int64) Reply {
	return Reply{
		StatusCode: http.StatusOK,
		Events:     StreamEvents(text, model, inputTokens, outputTokens),
	}
}
