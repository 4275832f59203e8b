package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "text content")
	return tc.Text
}

func TestNewMCPServer(t *testing.T) {
	orch := NewOrchestrator(abFetcher(t), NewBlobStore(time.Minute), zap.NewNop())
	assert.NotNil(t, NewMCPServer(orch))
}

func TestResolveAndEncodeTools(t *testing.T) {
	ctx := context.Background()

	res, err := encodeURLsHandler(ctx, mcp.CallToolRequest{}, EncodeURLsRequest{URLs: abURLs})
	require.NoError(t, err)
	require.False(t, res.IsError)
	frag := resultText(t, res)

	res, err = resolveFragmentHandler(ctx, mcp.CallToolRequest{}, ResolveFragmentRequest{Fragment: "#" + frag})
	require.NoError(t, err)
	require.False(t, res.IsError)
	var urls []string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &urls))
	assert.Equal(t, []string(abURLs), urls)

	res, err = resolveFragmentHandler(ctx, mcp.CallToolRequest{}, ResolveFragmentRequest{Fragment: "#"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = encodeURLsHandler(ctx, mcp.CallToolRequest{}, EncodeURLsRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBindDocumentsTool(t *testing.T) {
	orch := NewOrchestrator(abFetcher(t), nil, zap.NewNop())
	handler := bindDocumentsHandler(orch)
	out := filepath.Join(t.TempDir(), "bound.pdf")

	res, err := handler(context.Background(), mcp.CallToolRequest{}, BindDocumentsRequest{URLs: abURLs, Output: out})
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var resp BindDocumentsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Equal(t, 5, resp.Pages)
	assert.Len(t, resp.Spans, 2)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, resp.Bytes, len(data))
}

func TestBindDocumentsToolErrors(t *testing.T) {
	f := abFetcher(t)
	handler := bindDocumentsHandler(NewOrchestrator(f, nil, zap.NewNop()))
	out := filepath.Join(t.TempDir(), "bound.pdf")

	for name, req := range map[string]BindDocumentsRequest{
		"no output":   {URLs: abURLs},
		"no input":    {Output: out},
		"both inputs": {Fragment: Encode(abURLs), URLs: abURLs, Output: out},
		"bad url":     {URLs: []string{"https://host/missing.pdf"}, Output: out},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := handler(context.Background(), mcp.CallToolRequest{}, req)
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing written on failure")
}
