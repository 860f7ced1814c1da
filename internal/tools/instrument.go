package tools

import (
	"context"
	"time"

	"github.com/HendryAvila/agent-relay/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// Instrument wraps a tool handler with call logging and the tool call
// counter.
func Instrument(name string, log zerolog.Logger,
	next func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)
		failed := err != nil || (res != nil && res.IsError)
		metrics.RecordToolCall(name, failed)
		log.Debug().Str("tool", name).Bool("failed", failed).Dur("took", time.Since(start)).Msg("tool call")
		return res, err
	}
}
