package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	assert.Equal(t, []string{ToolNameCorrelate, ToolNameDetect, ToolNameExtract, ToolNameProfile}, srv.ListToolNames())
	assert.Len(t, srv.ListToolNames(), toolCount)
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, validatePath(""), ErrEmptyPath)
	require.ErrorIs(t, validatePath("data/x.csv"), ErrPathNotAbsolute)
	require.NoError(t, validatePath("/data/x.csv"))
}

func TestHandleExtract_TooManyRows(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleExtract(context.Background(), &mcpsdk.CallToolRequest{}, ExtractInput{
		Path: "/data/x.csv",
		Rows: make([]int64, MaxExtractRows+1),
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, ErrTooManyRows.Error())
}

func TestWithTracing_PassesThrough(t *testing.T) {
	t.Parallel()

	calls := 0
	handler := func(context.Context, *mcpsdk.CallToolRequest, DetectInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
		calls++

		return errorResult(errors.New("boom"))
	}

	wrapped := withMetrics(nil, ToolNameDetect, withTracing(noop.NewTracerProvider().Tracer("test"), ToolNameDetect, handler))

	result, _, err := wrapped(context.Background(), &mcpsdk.CallToolRequest{}, DetectInput{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 1, calls)
	assert.Len(t, result.Content, 1)
}
