package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Call connects to an MCP server over streamable HTTP, calls a tool with arbitrary
// arguments and returns the concatenated text content.
func Call(ctx context.Context, url string, tool string, args map[string]interface{}) (string, error) {
	c, err := mcpclient.NewStreamableHttpClient(url)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return "", err
	}

	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Request: mcp.Request{Method: string(mcp.MethodInitialize)},
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "migratectl",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		return "", err
	}

	res, err := c.CallTool(ctx, mcp.CallToolRequest{
		Request: mcp.Request{Method: string(mcp.MethodToolsCall)},
		Params: mcp.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Content) == 0 {
		return "", errors.New("empty tool result")
	}

	var parts []string
	for _, item := range res.Content {
		if v, ok := item.(mcp.TextContent); ok && v.Text != "" {
			parts = append(parts, v.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no text content returned")
	}
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", tool, strings.Join(parts, "\n"))
	}
	return strings.Join(parts, "\n"), nil
}
