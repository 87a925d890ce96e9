package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-fetch/internal/common"
	"github.com/bobmcallan/vire-fetch/internal/config"
	"github.com/bobmcallan/vire-fetch/internal/fetch"
)

// Handler is the HTTP handler for the MCP endpoint.
// It authenticates the shared secret and delegates to mcp-go's StreamableHTTPServer.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	secret     string
	authHeader string
}

// NewHandler creates the MCP handler with the fetch and get_version tools registered.
func NewHandler(cfg *config.Config, pipeline *fetch.Pipeline, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"vire-fetch",
		common.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	mcpSrv.AddTool(FetchTool(pipeline.Policy()), FetchToolHandler(pipeline))
	mcpSrv.AddTool(VersionTool(), VersionToolHandler())

	authHeader := cfg.Auth.Header
	if authHeader == "" {
		authHeader = config.DefaultAuthHeader
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithTransport(ctx, transportFromRequest(r, authHeader))
		}),
	)

	logger.Info().
		Str("auth_header", authHeader).
		Str("allowed_url_pattern", pipeline.Policy().Pattern()).
		Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
		secret:     cfg.Auth.Secret,
		authHeader: authHeader,
	}
}

// MCPServer returns the underlying MCP server.
func (h *Handler) MCPServer() *mcpserver.MCPServer {
	return h.server
}

// ServeHTTP rejects requests without the shared secret before any MCP
// processing takes place.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !Authenticate(r.Header.Get(h.authHeader), h.secret) {
		h.logger.Warn().
			Str("remote_addr", r.RemoteAddr).
			Str("header", h.authHeader).
			Msg("mcp request rejected: invalid or missing secret")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Missing or invalid " + h.authHeader + " header",
		})
		return
	}

	h.streamable.ServeHTTP(w, r)
}

// Authenticate reports whether presented exactly equals secret. An empty
// secret never authenticates anything.
func Authenticate(presented, secret string) bool {
	if secret == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}
