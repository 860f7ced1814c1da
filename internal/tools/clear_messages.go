package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// defaultOlderThanDays is the archive age used when the caller omits it.
const defaultOlderThanDays = 7

// ClearMessagesTool handles the clear_messages MCP tool.
type ClearMessagesTool struct {
	store messages.Store
	dir   agents.Directory
	log   zerolog.Logger
}

// NewClearMessagesTool creates a ClearMessagesTool with its dependencies.
func NewClearMessagesTool(store messages.Store, dir agents.Directory, log zerolog.Logger) *ClearMessagesTool {
	return &ClearMessagesTool{store: store, dir: dir, log: log}
}

// Definition returns the MCP tool definition for clear_messages.
func (t *ClearMessagesTool) Definition() mcp.Tool {
	return mcp.NewTool("clear_messages",
		mcp.WithDescription(
			"Archive read messages older than a number of days to keep your inbox short. "+
				"Unread messages are never archived.",
		),
		mcp.WithString("agent_name",
			mcp.Required(),
			mcp.Description("Your agent name (whose inbox to clean up)."),
		),
		mcp.WithNumber("older_than_days",
			mcp.Description("Archive read messages older than this many days (default: 7, 0 archives every read message)."),
			mcp.DefaultNumber(defaultOlderThanDays),
			mcp.Min(0),
		),
	)
}

// Handle processes the clear_messages tool call.
func (t *ClearMessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := stringArg(req, "agent_name")
	if agent == "" {
		return errorResult(requiredName("agent_name")), nil
	}
	days, err := nonNegativeIntArg(req, "older_than_days", defaultOlderThanDays)
	if err != nil {
		return errorResult(err), nil
	}

	note := ""
	roster := t.dir.Discover()
	if _, ok := agents.Lookup(roster, agent); !ok {
		note = fmt.Sprintf("Note: %q is not in the agent roster. Use a consistent agent name.\n\n", agent)
	}

	moved, err := t.store.Archive(ctx, agent, days)
	if err != nil {
		t.log.Error().Err(err).Str("agent", agent).Msg("clear_messages failed")
		return errorResult(err), nil
	}
	stats, err := t.store.Stats(ctx, agent)
	if err != nil {
		t.log.Error().Err(err).Str("agent", agent).Msg("clear_messages stats failed")
		return errorResult(err), nil
	}

	var sb strings.Builder
	sb.WriteString(note)
	if moved == 0 {
		fmt.Fprintf(&sb, "No messages to archive for %s (read and older than %s).\n", agent, plural(days, "day"))
	} else {
		fmt.Fprintf(&sb, "Archived %s for %s.\n", plural(moved, "message"), agent)
	}
	fmt.Fprintf(&sb, "%s remaining (%d unread).\n", plural(stats.Total, "message"), stats.Unread)

	return mcp.NewToolResultText(sb.String()), nil
}
