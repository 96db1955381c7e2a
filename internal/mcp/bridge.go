package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nugget/webmcp/internal/tools"
)

// BridgeTools registers every tool in registry on srv, using each tool's
// declared parameter schema as the MCP input schema. Calls are routed
// back through the registry so arguments are validated the same way as
// for the CLI.
//
// BridgeTools returns the number of tools registered.
func BridgeTools(srv *server.MCPServer, registry *tools.Registry, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count := 0
	for _, t := range registry.All() {
		schema, err := t.Schema()
		if err != nil {
			return count, fmt.Errorf("schema for %s: %w", t.Name, err)
		}

		srv.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, schema), bridgeTool(registry, t.Name))
		count++

		logger.Debug("registered MCP tool", "tool", t.Name)
	}

	return count, nil
}

// bridgeTool adapts a registry tool to an mcp-go handler. Tool failures
// become error results carrying a [tools.ToolError] JSON body; they are
// never returned as protocol errors.
func bridgeTool(registry *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := registry.Call(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(tools.NewToolError(name, err).JSON()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
