package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// ReadMessagesTool handles the read_messages MCP tool.
type ReadMessagesTool struct {
	store messages.Store
	dir   agents.Directory
	log   zerolog.Logger
}

// NewReadMessagesTool creates a ReadMessagesTool with its dependencies.
func NewReadMessagesTool(store messages.Store, dir agents.Directory, log zerolog.Logger) *ReadMessagesTool {
	return &ReadMessagesTool{store: store, dir: dir, log: log}
}

// Definition returns the MCP tool definition for read_messages.
func (t *ReadMessagesTool) Definition() mcp.Tool {
	return mcp.NewTool("read_messages",
		mcp.WithDescription(
			"Read the messages other agents sent you, highest priority first. "+
				"By default only unread messages are returned and they are marked read, "+
				"so a second call returns only what arrived since.",
		),
		mcp.WithString("agent_name",
			mcp.Required(),
			mcp.Description("Your agent name (whose inbox to read). Use the same name you send with."),
		),
		mcp.WithBoolean("mark_as_read",
			mcp.Description("Mark returned messages as read (default: true). Set false to peek."),
			mcp.DefaultBool(true),
		),
		mcp.WithString("priority_filter",
			mcp.Description("Only return messages of this priority."),
			mcp.Enum("high", "medium", "low"),
		),
		mcp.WithBoolean("include_read",
			mcp.Description("Also return messages that were already read (default: false)."),
			mcp.DefaultBool(false),
		),
	)
}

// Handle processes the read_messages tool call.
func (t *ReadMessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := stringArg(req, "agent_name")
	if agent == "" {
		return errorResult(requiredName("agent_name")), nil
	}
	markAsRead, err := boolArg(req, "mark_as_read", true)
	if err != nil {
		return errorResult(err), nil
	}
	includeRead, err := boolArg(req, "include_read", false)
	if err != nil {
		return errorResult(err), nil
	}
	filter := stringArg(req, "priority_filter")

	opts := messages.ListOptions{
		Priority:    messages.Priority(strings.ToLower(filter)),
		IncludeRead: includeRead,
		MarkAsRead:  markAsRead,
	}

	warning := ""
	roster := t.dir.Discover()
	if _, ok := agents.Lookup(roster, agent); !ok {
		warning = unknownAgentWarning(agent, roster)
	}

	msgs, err := t.store.List(ctx, agent, opts)
	if err != nil {
		t.log.Error().Err(err).Str("agent", agent).Msg("read_messages failed")
		return errorResult(err), nil
	}

	if len(msgs) == 0 {
		return mcp.NewToolResultText(warning + emptyInboxText(agent, opts)), nil
	}

	return mcp.NewToolResultText(warning + formatReport(agent, msgs, markAsRead)), nil
}

// emptyInboxText states which filters produced the empty result.
func emptyInboxText(agent string, opts messages.ListOptions) string {
	var sb strings.Builder
	sb.WriteString("No ")
	if !opts.IncludeRead {
		sb.WriteString("unread ")
	}
	sb.WriteString("messages")
	if opts.Priority != "" {
		fmt.Fprintf(&sb, " with priority %s", opts.Priority)
	}
	fmt.Fprintf(&sb, " for %s", agent)
	return sb.String()
}

func formatReport(agent string, msgs []messages.Message, marked bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Messages for %s (%s)\n", agent, plural(len(msgs), "message"))
	if marked {
		sb.WriteString("\nAll listed messages are now marked read.\n")
	}

	for i, m := range msgs {
		marker := "unread"
		if m.Read {
			marker = "read"
		}
		fmt.Fprintf(&sb, "\n## %d. [%s] %s priority from %s\n\n", i+1, marker, strings.ToUpper(string(m.Priority)), m.From)
		fmt.Fprintf(&sb, "- ID: %s\n", m.ID)
		if m.Timestamp.IsZero() {
			sb.WriteString("- Sent: unknown\n")
		} else {
			fmt.Fprintf(&sb, "- Sent: %s (%s)\n", age(m.Timestamp), m.Timestamp.Format(time.RFC3339))
		}
		if len(m.ContextFiles) > 0 {
			fmt.Fprintf(&sb, "- Files: %s\n", strings.Join(m.ContextFiles, ", "))
		}
		fmt.Fprintf(&sb, "\n%s\n", m.Body)
	}
	return sb.String()
}
