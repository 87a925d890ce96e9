package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/bobmcallan/vire-fetch/internal/fetch"
)

// FetchTool returns the mcp.Tool definition for fetch. The description
// advertises the active policy so agents can self-limit.
func FetchTool(policy *fetch.Policy) mcp.Tool {
	desc := fmt.Sprintf("Fetch a URL over HTTP. URLs must match %s; allowed methods: %s. "+
		"Responses larger than %dKB are truncated.",
		policy.Pattern(), strings.Join(policy.AllowedMethods(), ", "), policy.MaxResponseKB())

	return mcp.NewTool("fetch",
		mcp.WithDescription(desc),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL to fetch"),
		),
		mcp.WithString("method",
			mcp.Description("HTTP method (default GET)"),
		),
		mcp.WithObject("headers",
			mcp.Description("Request headers; names outside the tool header allow-list are dropped"),
			mcp.AdditionalProperties(map[string]any{"type": "string"}),
		),
		mcp.WithString("body",
			mcp.Description("Request body sent verbatim"),
		),
	)
}

// FetchToolHandler runs each call through the pipeline. Pipeline outcomes,
// including policy rejections and malformed arguments, are tool results in
// the fetch envelope and never Go errors.
func FetchToolHandler(pipeline *fetch.Pipeline) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tr, _ := GetTransport(ctx)
		req, err := parseFetchRequest(r)
		if err != nil {
			return ToolResult(pipeline.Reject(req, tr, err.Error())), nil
		}
		return ToolResult(pipeline.Run(ctx, req, tr)), nil
	}
}

// parseFetchRequest decodes the tool arguments. On error the returned request
// still carries whatever url and method could be read, for logging.
func parseFetchRequest(r mcp.CallToolRequest) (fetch.Request, error) {
	req := fetch.Request{
		URL:    r.GetString("url", ""),
		Method: r.GetString("method", ""),
	}
	if _, err := r.RequireString("url"); err != nil {
		return req, err
	}

	args := r.GetArguments()
	if v, ok := args["headers"]; ok && v != nil {
		headers, err := cast.ToStringMapStringE(v)
		if err != nil {
			return req, fmt.Errorf("invalid headers argument: %w", err)
		}
		req.Headers = headers
	}
	if v, ok := args["body"]; ok && v != nil {
		body, err := cast.ToStringE(v)
		if err != nil {
			return req, fmt.Errorf("invalid body argument: %w", err)
		}
		req.Body = &body
	}
	return req, nil
}

// errorResult creates a bare MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
