package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nugget/webmcp/internal/tools"
)

// logCalls tags each tool call with a request ID and logs its outcome.
// A panicking handler is converted into an internal_error result so the
// session keeps running.
func logCalls(logger *slog.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
			id := uuid.NewString()
			ctx = tools.WithRequestID(ctx, id)
			log := logger.With("request_id", id, "tool", req.Params.Name)
			start := time.Now()

			defer func() {
				if r := recover(); r != nil {
					log.Error("tool handler panicked", "panic", r, "stack", string(debug.Stack()))
					te := tools.ToolError{
						Kind:    tools.KindInternal,
						Tool:    req.Params.Name,
						Message: fmt.Sprintf("internal error: %v", r),
					}
					result, err = mcp.NewToolResultError(te.JSON()), nil
				}

				elapsed := time.Since(start).Round(time.Millisecond)
				switch {
				case err != nil:
					log.Error("tool call failed", "elapsed", elapsed, "error", err)
				case result != nil && result.IsError:
					log.Warn("tool call returned error",
						"elapsed", elapsed,
						"kind", errorKind(result),
					)
				default:
					log.Info("tool call complete", "elapsed", elapsed)
				}
			}()

			log.Debug("tool call started")
			return next(ctx, req)
		}
	}
}

// errorKind reads the kind back out of an error result body.
func errorKind(result *mcp.CallToolResult) tools.Kind {
	for _, c := range result.Content {
		text, ok := c.(mcp.TextContent)
		if !ok {
			continue
		}
		var body struct {
			Error tools.ToolError `json:"error"`
		}
		if json.Unmarshal([]byte(text.Text), &body) == nil && body.Error.Kind != "" {
			return body.Error.Kind
		}
	}
	return tools.KindInternal
}
