package fetch

import (
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/bobmcallan/vire-fetch/internal/common"
)

// accessTimeFormat is ISO-8601 in UTC with millisecond precision.
const accessTimeFormat = "2006-01-02T15:04:05.000Z"

// AccessLogger writes one Common Log Format style line per fetch attempt.
// Lines are written whole, so concurrent attempts may interleave lines but
// never bytes within a line.
type AccessLogger struct {
	mu     sync.Mutex
	out    io.Writer
	logger *common.Logger
	now    func() time.Time
}

// NewAccessLogger creates an AccessLogger writing to out. When logger is
// non-nil every line is mirrored to it at debug level.
func NewAccessLogger(out io.Writer, logger *common.Logger) *AccessLogger {
	return &AccessLogger{out: out, logger: logger, now: time.Now}
}

// Log records one attempt. Failed attempts pass StatusNoResponse and 0 bytes.
func (a *AccessLogger) Log(rawURL, method string, statusCode int, responseBytes int64, clientIP string) {
	if clientIP == "" {
		clientIP = "-"
	}
	line := FormatAccessLine(a.now(), clientIP, method, rawURL, statusCode, responseBytes)

	a.mu.Lock()
	_, err := io.WriteString(a.out, line+"\n")
	a.mu.Unlock()

	if a.logger == nil {
		return
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("access log write failed")
	}
	a.logger.Debug().
		Str("client_ip", clientIP).
		Str("method", method).
		Str("url", rawURL).
		Int("status", statusCode).
		Int64("bytes", responseBytes).
		Msg("fetch access")
}

// FormatAccessLine renders
// `<clientIp> - - [<timestamp>] "<METHOD> <host><path?query> HTTP/1.1" <status> <bytes>`.
func FormatAccessLine(ts time.Time, clientIP, method, rawURL string, statusCode int, responseBytes int64) string {
	return fmt.Sprintf(`%s - - [%s] "%s %s HTTP/1.1" %d %d`,
		clientIP, ts.UTC().Format(accessTimeFormat), method, requestTarget(rawURL), statusCode, responseBytes)
}

// requestTarget derives host plus path and query from the fetched URL.
func requestTarget(rawURL string) string {
	if rawURL == "" {
		return "-"
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host + u.RequestURI()
}
