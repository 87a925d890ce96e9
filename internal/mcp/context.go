package mcp

import (
	"context"
	"net"
	"net/http"

	"github.com/bobmcallan/vire-fetch/internal/fetch"
)

// transportContextKey is the context key for the inbound transport data.
type transportContextKey struct{}

// WithTransport returns a new context carrying the inbound transport data.
func WithTransport(ctx context.Context, tr fetch.Transport) context.Context {
	return context.WithValue(ctx, transportContextKey{}, tr)
}

// GetTransport extracts the transport data from the context, if present.
func GetTransport(ctx context.Context) (fetch.Transport, bool) {
	tr, ok := ctx.Value(transportContextKey{}).(fetch.Transport)
	return tr, ok
}

// transportFromRequest captures the inbound headers, minus the credential
// header, and the peer address of an MCP HTTP call.
func transportFromRequest(r *http.Request, authHeader string) fetch.Transport {
	headers := r.Header.Clone()
	headers.Del(authHeader)
	return fetch.Transport{
		Headers:  headers,
		ClientIP: clientIP(r.RemoteAddr),
	}
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
