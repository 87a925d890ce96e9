package fetch

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"

	"github.com/bobmcallan/vire-fetch/internal/common"
)

// sniffLen is how much of a body is inspected when no Content-Type was sent.
const sniffLen = 3072

// Executor performs the bounded network call for a validated request.
type Executor struct {
	client *http.Client
	policy *Policy
	access *AccessLogger
	logger *common.Logger
	now    func() time.Time
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithHTTPClient replaces the HTTP client. Its redirect policy is kept as given.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = c }
}

// WithClock replaces the wall clock used for retrievedAt.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an Executor bound to policy. The default client follows
// redirects only while each hop still matches the URL allow-pattern.
func NewExecutor(policy *Policy, access *AccessLogger, logger *common.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		policy: policy,
		access: access,
		logger: logger,
		now:    time.Now,
	}
	e.client = &http.Client{CheckRedirect: e.checkRedirect}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if target := req.URL.String(); !e.policy.AllowsURL(target) {
		return fmt.Errorf("redirect to %s not allowed", target)
	}
	return nil
}

// Execute fetches req with the already-filtered headers and always returns a
// Result. Exactly one access log line is written per call.
func (e *Executor) Execute(ctx context.Context, req Request, headers map[string]string, clientIP string) Result {
	method := req.NormalizedMethod()
	start := time.Now()

	result, n := e.do(ctx, req.URL, method, headers, req.Body)

	e.access.Log(req.URL, method, result.Meta.StatusCode, n, clientIP)
	if e.logger != nil {
		e.logger.Debug().
			Str("url", req.URL).
			Str("method", method).
			Int("status", result.Meta.StatusCode).
			Int64("bytes", n).
			Bool("is_error", result.IsError).
			Dur("duration", time.Since(start)).
			Msg("fetch complete")
	}
	return result
}

// do returns the result and the number of body bytes delivered to the caller.
func (e *Executor) do(parent context.Context, rawURL, method string, headers map[string]string, body *string) (Result, int64) {
	ctx, cancel := context.WithTimeout(parent, e.policy.Timeout())
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = strings.NewReader(*body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return e.fail(rawURL, err), 0
	}
	for name, value := range headers {
		if strings.EqualFold(name, "host") {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Set(name, value)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return e.failure(parent, ctx, rawURL, err), 0
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	src := bufio.NewReaderSize(resp.Body, sniffLen)
	if contentType == "" {
		head, _ := src.Peek(sniffLen)
		contentType = mimetype.Detect(head).String()
	}
	mediaType := parseMediaType(contentType)

	maxBytes := e.policy.MaxBytes()
	var part ContentPart
	var n int64
	if isTextMediaType(mediaType) {
		part, n, err = readText(src, contentType, mediaType, maxBytes, e.policy.MaxResponseKB())
	} else {
		part, n, err = readBinary(src, mediaType, maxBytes, e.policy.MaxResponseKB())
	}
	if err != nil {
		return e.failure(parent, ctx, rawURL, err), 0
	}

	return Success(rawURL, e.now(), resp.StatusCode, flattenHeaders(resp.Header), part), n
}

// failure classifies a transport error. Only our own deadline counts as a
// timeout; a cancelled caller is reported as a fetch failure.
func (e *Executor) failure(parent, ctx context.Context, rawURL string, err error) Result {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Failure(rawURL, e.now(), fmt.Sprintf("Request timeout after %ds", e.policy.TimeoutSeconds()))
	}
	return e.fail(rawURL, err)
}

func (e *Executor) fail(rawURL string, err error) Result {
	return Failure(rawURL, e.now(), fmt.Sprintf("Failed to fetch URL: %v", err))
}

// readText decodes the body to UTF-8 and truncates it at maxBytes of UTF-8.
func readText(src *bufio.Reader, contentType, mediaType string, maxBytes int64, maxKB int) (ContentPart, int64, error) {
	r, err := textReader(src, contentType)
	if err != nil {
		return ContentPart{}, 0, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return ContentPart{}, 0, err
	}
	text, n := truncateText(data, maxBytes, maxKB)
	return ContentPart{Kind: PartText, Payload: text, MediaType: mediaType}, n, nil
}

// textReader transcodes only when the encoding is certain: a BOM or a
// declared charset. Anything else is read as UTF-8, since guessing from the
// first 1024 bytes mislabels UTF-8 bodies with an ASCII prefix.
func textReader(src *bufio.Reader, contentType string) (io.Reader, error) {
	head, err := src.Peek(1024)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	_, name, certain := charset.DetermineEncoding(head, contentType)
	if !certain || name == "utf-8" {
		return src, nil
	}
	return charset.NewReader(src, contentType)
}

// readBinary base64-encodes the body. When truncated, the marker is appended
// to the encoded string, so the payload no longer decodes cleanly.
func readBinary(src io.Reader, mediaType string, maxBytes int64, maxKB int) (ContentPart, int64, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return ContentPart{}, 0, err
	}
	truncated := int64(len(data)) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}
	payload := base64.StdEncoding.EncodeToString(data)
	if truncated {
		payload += truncationMarker(maxKB)
	}
	return ContentPart{Kind: PartBinary, Payload: payload, MediaType: mediaType}, int64(len(data)), nil
}

// truncateText cuts data to maxBytes, drops a trailing partial rune and
// appends the marker. Bodies of exactly maxBytes are returned unchanged.
func truncateText(data []byte, maxBytes int64, maxKB int) (string, int64) {
	if int64(len(data)) <= maxBytes {
		return string(data), int64(len(data))
	}
	cut := trimPartialRune(data[:maxBytes])
	return string(cut) + truncationMarker(maxKB), int64(len(cut))
}

func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			return b[:start]
		}
		return b
	}
	return b
}

func truncationMarker(maxKB int) string {
	return fmt.Sprintf("\n(... truncated after %dKB)", maxKB)
}

// parseMediaType returns the lowercase type/subtype without parameters.
func parseMediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// isTextMediaType reports whether a body is returned as text. image/* and
// application/pdf are binary even when the subtype names xml (image/svg+xml);
// everything outside the text categories is binary too.
func isTextMediaType(mediaType string) bool {
	if strings.HasPrefix(mediaType, "image/") || mediaType == "application/pdf" {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		strings.Contains(mediaType, "json") ||
		strings.Contains(mediaType, "xml")
}

// flattenHeaders lowercases names and joins multiple values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
