package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/vire-fetch/internal/fetch"
)

// ToolResult maps a fetch result onto the MCP tool result shape. The
// metadata block becomes structuredContent.
func ToolResult(r fetch.Result) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(r.Parts))
	for _, p := range r.Parts {
		content = append(content, contentFor(r.Meta.URL, p))
	}
	return &mcp.CallToolResult{
		Content:           content,
		StructuredContent: r.Meta,
		IsError:           r.IsError,
	}
}

// contentFor renders images as image content and any other binary type as
// an embedded blob resource.
func contentFor(uri string, p fetch.ContentPart) mcp.Content {
	switch {
	case p.Kind == fetch.PartText:
		return mcp.NewTextContent(p.Payload)
	case strings.HasPrefix(p.MediaType, "image/"):
		return mcp.NewImageContent(p.Payload, p.MediaType)
	default:
		return mcp.NewEmbeddedResource(mcp.BlobResourceContents{
			URI:      uri,
			MIMEType: p.MediaType,
			Blob:     p.Payload,
		})
	}
}
