package statusmcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tg-forum-migrator/internal/notify"
	"tg-forum-migrator/internal/stats"
)

const (
	ToolStatus = "migration.status"
	ToolReport = "migration.report"
)

// NewServer exposes the run's progress as MCP tools.
func NewServer(tracker *stats.Tracker) *server.MCPServer {
	s := server.NewMCPServer(
		"forum-migrator",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	s.AddTool(mcp.NewTool(ToolStatus,
		mcp.WithDescription("Current migration progress as a JSON object"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(tracker.Snapshot())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	})

	s.AddTool(mcp.NewTool(ToolReport,
		mcp.WithDescription("Current migration progress as a short human-readable report"),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(notify.Format(tracker.Snapshot())), nil
	})

	return s
}

// NewHandler wraps the MCP server in a stateless streamable HTTP transport served at path.
func NewHandler(s *server.MCPServer, path string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
	)
}
