package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

type ResolveFragmentRequest struct {
	Fragment string `json:"fragment"` // location fragment, with or without '#'
}

type EncodeURLsRequest struct {
	URLs []string `json:"urls"` // document URLs in page order
}

type BindDocumentsRequest struct {
	Fragment string   `json:"fragment"` // either fragment or urls
	URLs     []string `json:"urls"`
	Output   string   `json:"output"` // path of the PDF to write
}

type BindDocumentsResponse struct {
	Output string     `json:"output"`
	Pages  int        `json:"pages"`
	Bytes  int        `json:"bytes"`
	Spans  []PageSpan `json:"spans"`
}

// NewMCPServer exposes fragment tooling and document binding as MCP tools.
func NewMCPServer(orch *Orchestrator) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"PDF Binder MCP",
		Version,
		mcpserver.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("resolve_fragment",
		mcp.WithDescription("Decode a viewer link fragment into its ordered list of document URLs"),
		mcp.WithString("fragment",
			mcp.Required(),
			mcp.Description("The part of the viewer link after '#'"),
		),
	), mcp.NewTypedToolHandler(resolveFragmentHandler))

	s.AddTool(mcp.NewTool("encode_urls",
		mcp.WithDescription("Encode an ordered list of document URLs into a viewer link fragment"),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("Document URLs in the order their pages should appear"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), mcp.NewTypedToolHandler(encodeURLsHandler))

	s.AddTool(mcp.NewTool("bind_documents",
		mcp.WithDescription("Download documents and merge all their pages, in order, into one PDF file"),
		mcp.WithString("fragment", mcp.Description("Viewer link fragment (alternative to urls)")),
		mcp.WithArray("urls",
			mcp.Description("Document URLs (alternative to fragment)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path of the merged PDF to write"),
		),
	), mcp.NewTypedToolHandler(bindDocumentsHandler(orch)))

	return s
}

func resolveFragmentHandler(_ context.Context, _ mcp.CallToolRequest, args ResolveFragmentRequest) (*mcp.CallToolResult, error) {
	urls, err := Resolve(args.Fragment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid fragment: %v", err)), nil
	}
	return jsonResult(urls)
}

func encodeURLsHandler(_ context.Context, _ mcp.CallToolRequest, args EncodeURLsRequest) (*mcp.CallToolResult, error) {
	if len(args.URLs) == 0 {
		return mcp.NewToolResultError("urls is required"), nil
	}
	return mcp.NewToolResultText(Encode(args.URLs)), nil
}

func bindDocumentsHandler(orch *Orchestrator) func(context.Context, mcp.CallToolRequest, BindDocumentsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest, args BindDocumentsRequest) (*mcp.CallToolResult, error) {
		if args.Output == "" {
			return mcp.NewToolResultError("output is required"), nil
		}
		urls, err := requestURLs(args.Fragment, args.URLs)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		c, err := orch.Bind(ctx, urls)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to bind documents: %v", err)), nil
		}
		if err := os.WriteFile(args.Output, c.Data, 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to write output: %v", err)), nil
		}
		return jsonResult(BindDocumentsResponse{
			Output: args.Output,
			Pages:  c.Pages,
			Bytes:  len(c.Data),
			Spans:  c.Spans,
		})
	}
}

// requestURLs takes the URL list from either a fragment or an explicit list.
func requestURLs(fragment string, urls []string) (URLList, error) {
	switch {
	case fragment != "" && len(urls) > 0:
		return nil, fmt.Errorf("give either a fragment or urls, not both")
	case fragment != "":
		return Resolve(fragment)
	case len(urls) > 0:
		return URLList(urls), nil
	default:
		return nil, ErrEmptyRequest
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
