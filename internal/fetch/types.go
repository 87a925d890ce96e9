// Package fetch implements the policy-enforcing relay behind the fetch tool:
// request validation, header filtering, bounded execution, truncation and
// access logging.
package fetch

import (
	"net/http"
	"strings"
	"time"
)

// StatusNoResponse marks a result for which no HTTP response was obtained.
const StatusNoResponse = -1

// PartKind tags a content part as text or base64-encoded binary.
type PartKind string

const (
	PartText   PartKind = "text"
	PartBinary PartKind = "binary"
)

// ContentPart is one piece of result content.
type ContentPart struct {
	Kind      PartKind
	Payload   string
	MediaType string
}

// Metadata is the structured block returned alongside the content parts.
type Metadata struct {
	URL         string            `json:"url"`
	RetrievedAt time.Time         `json:"retrievedAt"`
	StatusCode  int               `json:"statusCode"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Result is the uniform outcome of one fetch attempt.
type Result struct {
	Parts   []ContentPart
	Meta    Metadata
	IsError bool
}

// Message returns the payload of the first text part, or "".
func (r Result) Message() string {
	for _, p := range r.Parts {
		if p.Kind == PartText {
			return p.Payload
		}
	}
	return ""
}

// Request is a caller-supplied fetch invocation.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    *string
}

// NormalizedMethod returns the uppercase method, defaulting to GET.
func (r Request) NormalizedMethod() string {
	m := strings.ToUpper(strings.TrimSpace(r.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// Transport carries ambient data from the inbound tool call: the transport
// headers eligible for passthrough and the caller's address.
type Transport struct {
	Headers  http.Header
	ClientIP string
}

func (t Transport) clientIP() string {
	if t.ClientIP == "" {
		return "-"
	}
	return t.ClientIP
}
