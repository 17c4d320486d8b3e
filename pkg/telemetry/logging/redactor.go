package logging

import (
	"net/http"
	"regexp"
	"strings"
)

// Redactor masks upstream credentials so they never reach a log line.
// The proxy handles the operator's API key on every request; any debug
// dump of request material goes through the redactor first.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern pairs a compiled regex with its replacement.
type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// sensitiveHeaders are masked wholesale in header dumps, matched
// case-insensitively.
var sensitiveHeaders = map[string]struct{}{
	"x-api-key":           {},
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
}

// NewRedactor creates a redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			// Anthropic-style keys keep their identifying prefix.
			{regexp.MustCompile(`sk-ant-[a-zA-Z0-9_\-]+`), "sk-ant-***"},
			{regexp.MustCompile(`sk-[a-zA-Z0-9_\-]+`), "sk-***"},
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
		},
	}
}

// RedactString masks credentials embedded in a string.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactHeaders returns a copy of h with credential headers masked and
// credential patterns scrubbed from all other values. The input is
// never modified.
func (r *Redactor) RedactHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if _, sensitive := sensitiveHeaders[strings.ToLower(name)]; sensitive {
			out[name] = []string{RedactValue(values[0])}
			continue
		}
		copied := make([]string, len(values))
		for i, v := range values {
			copied[i] = r.RedactString(v)
		}
		out[name] = copied
	}
	return out
}

// RedactValue masks a credential completely, keeping a short prefix for
// identification.
func RedactValue(value string) string {
	if len(value) <= 4 {
		return "***"
	}
	return value[:4] + "***"
}

// defaultRedactor backs the package-level helpers.
var defaultRedactor = NewRedactor()

// RedactString masks credentials using the default redactor.
func RedactString(value string) string {
	return defaultRedactor.RedactString(value)
}

// RedactHeaders masks credential headers using the default redactor.
func RedactHeaders(h http.Header) http.Header {
	return defaultRedactor.RedactHeaders(h)
}
