package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/datalens/pkg/mcp"
)

const (
	peopleCSV   = "id,name,score\n1,Ann,3.5\n2,\"Bob, Jr.\",7\n3,Cy,10.5\n4,Dee,14\n"
	callTimeout = 10 * time.Second
)

func writeCSV(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(peopleCSV), 0o600))

	return path
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text, result.IsError
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, toolsResult)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{
		mcp.ToolNameProfile, mcp.ToolNameDetect, mcp.ToolNameExtract, mcp.ToolNameCorrelate,
	}, toolNames)
}

func TestMCPServer_InMemoryTransport_ProfileFile(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameProfile, map[string]any{"path": writeCSV(t)})
	require.False(t, isErr, text)

	var res struct {
		TotalRows      int64 `json:"total_rows"`
		ColumnProfiles []struct {
			Name string `json:"name"`
		} `json:"column_profiles"`
	}

	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, int64(4), res.TotalRows)
	require.Len(t, res.ColumnProfiles, 3)
	assert.Equal(t, "name", res.ColumnProfiles[1].Name)
}

func TestMCPServer_InMemoryTransport_DetectFormat(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameDetect, map[string]any{"path": writeCSV(t)})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"format": "csv"`)
	assert.Contains(t, text, `"delimiter": ","`)
}

func TestMCPServer_InMemoryTransport_ExtractRows(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameExtract, map[string]any{
		"path": writeCSV(t),
		"rows": []int{1},
	})
	require.False(t, isErr, text)

	var rows []struct {
		Index  int64    `json:"index"`
		Fields []string `json:"fields"`
	}

	require.NoError(t, json.Unmarshal([]byte(text), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"2", "Bob, Jr.", "7"}, rows[0].Fields)
}

func TestMCPServer_InMemoryTransport_ExtractRowsEncoding(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cities.csv")
	require.NoError(t, os.WriteFile(path, []byte("city,pop\nM\xe1laga,578\n"), 0o600))

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameExtract, map[string]any{
		"path":     path,
		"rows":     []int{0},
		"encoding": "iso-8859-1",
	})
	require.False(t, isErr, text)

	var rows []struct {
		Fields []string `json:"fields"`
	}

	require.NoError(t, json.Unmarshal([]byte(text), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Málaga", "578"}, rows[0].Fields)
}

func TestMCPServer_InMemoryTransport_Correlate(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	text, isErr := callText(t, session, mcp.ToolNameCorrelate, map[string]any{
		"path":    writeCSV(t),
		"columns": []string{"id", "score"},
	})
	require.False(t, isErr, text)

	var m struct {
		Values [][]float64 `json:"values"`
	}

	require.NoError(t, json.Unmarshal([]byte(text), &m))
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
}

func TestMCPServer_InMemoryTransport_Errors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"relative path", mcp.ToolNameProfile, map[string]any{"path": "people.csv"}, "absolute path"},
		{"empty path", mcp.ToolNameDetect, map[string]any{"path": ""}, "path parameter is required"},
		{"missing file", mcp.ToolNameProfile, map[string]any{"path": "/nonexistent/people.csv"}, "no such file"},
		{"no rows", mcp.ToolNameExtract, map[string]any{"path": "/tmp/x.csv", "rows": []int{}}, "rows parameter is required"},
		{"no columns", mcp.ToolNameCorrelate, map[string]any{"path": "/tmp/x.csv", "columns": []string{}}, "columns parameter is required"},
		{"bad delimiter", mcp.ToolNameProfile, map[string]any{"path": "/tmp/x.csv", "delimiter": "::"}, "delimiter"},
	}

	for _, tt := range tests {
		text, isErr := callText(t, session, tt.tool, tt.args)
		assert.True(t, isErr, tt.name)
		assert.Contains(t, text, tt.want, tt.name)
	}
}
