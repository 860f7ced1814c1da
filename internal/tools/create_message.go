package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/HendryAvila/agent-relay/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// CreateMessageTool handles the create_message MCP tool.
type CreateMessageTool struct {
	store messages.Store
	dir   agents.Directory
	log   zerolog.Logger
}

// NewCreateMessageTool creates a CreateMessageTool with its dependencies.
func NewCreateMessageTool(store messages.Store, dir agents.Directory, log zerolog.Logger) *CreateMessageTool {
	return &CreateMessageTool{store: store, dir: dir, log: log}
}

// Definition returns the MCP tool definition for create_message. The
// roster is sampled once here, so descriptions reflect agents declared at
// registration.
func (t *CreateMessageTool) Definition() mcp.Tool {
	hint := knownAgentsHint(agents.Names(t.dir.Discover()))
	return mcp.NewTool("create_message",
		mcp.WithDescription(
			"Send a message to another agent's inbox. The recipient must be a known agent "+
				"(see list_agents); an unknown name returns the roster, close matches, and a "+
				"ready-to-use retry call."+hint,
		),
		mcp.WithString("from_agent",
			mcp.Required(),
			mcp.Description("Your agent name (sender). Use the same name you read messages with."),
		),
		mcp.WithString("to_agent",
			mcp.Required(),
			mcp.Description("Recipient agent name, exactly as shown by list_agents."+hint),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message content. Be specific: include findings, code, or decisions."),
		),
		mcp.WithString("priority",
			mcp.Description("Message priority (default: medium)."),
			mcp.Enum("high", "medium", "low"),
			mcp.DefaultString("medium"),
		),
		mcp.WithArray("context_files",
			mcp.Description("Optional file paths the recipient should review."),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the create_message tool call.
func (t *CreateMessageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := stringArg(req, "from_agent")
	to := stringArg(req, "to_agent")
	body := req.GetString("message", "")
	priorityArg := stringArg(req, "priority")

	if from == "" {
		return errorResult(requiredName("from_agent")), nil
	}
	if to == "" {
		return errorResult(requiredName("to_agent")), nil
	}
	if strings.TrimSpace(body) == "" {
		return errorResult(argError("message", "is required: non-empty message text")), nil
	}
	priority, err := messages.ParsePriority(priorityArg)
	if err != nil {
		return errorResult(err), nil
	}
	files, err := stringSliceArg(req, "context_files")
	if err != nil {
		return errorResult(err), nil
	}

	roster := t.dir.Discover()
	if _, ok := agents.Lookup(roster, to); !ok {
		metrics.UnknownRecipients.Inc()
		t.log.Debug().Str("from", from).Str("to", to).Msg("unknown recipient")
		return unknownRecipientResult(from, to, body, priority, roster, t.dir.Roots()), nil
	}

	msg, err := t.store.Create(ctx, messages.NewMessage{
		From:         req.GetString("from_agent", ""),
		To:           to,
		Body:         body,
		Priority:     string(priority),
		ContextFiles: files,
	})
	if err != nil {
		t.log.Error().Err(err).Str("from", from).Str("to", to).Msg("create_message failed")
		return errorResult(err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Message sent: %s\n\n", msg.ID)
	fmt.Fprintf(&sb, "- From: %s\n", msg.From)
	fmt.Fprintf(&sb, "- To: %s\n", msg.To)
	fmt.Fprintf(&sb, "- Priority: %s\n", msg.Priority)
	if len(msg.ContextFiles) > 0 {
		fmt.Fprintf(&sb, "- Files: %s\n", strings.Join(msg.ContextFiles, ", "))
	}
	if _, ok := agents.Lookup(roster, from); !ok {
		fmt.Fprintf(&sb, "\nNote: sender %q is not in the agent roster. "+
			"Use a known agent name so replies reach you.\n", from)
	}
	fmt.Fprintf(&sb, "\nPreview:\n%s\n", truncate(msg.Body, previewLen))

	return mcp.NewToolResultText(sb.String()), nil
}

// unknownRecipientResult builds the error result for a recipient that is
// not in the roster: the roster, up to three close matches, and a literal
// retry call filled in from the caller's own input. The same data is
// attached as structured content.
func unknownRecipientResult(from, to, body string, priority messages.Priority,
	roster []agents.Descriptor, roots []agents.Root) *mcp.CallToolResult {
	names := agents.Names(roster)
	suggestions := agents.ClosestMatches(to, names)
	if suggestions == nil {
		suggestions = []string{}
	}

	target := "<correct-agent-name>"
	if len(suggestions) > 0 {
		target = suggestions[0]
	}
	retry := fmt.Sprintf("create_message(from_agent=%q, to_agent=%q, message=%q, priority=%q)",
		from, target, truncate(body, retryPreviewLen), string(priority))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Unknown recipient: no agent named %q.\n", to)

	if len(suggestions) > 0 {
		sb.WriteString("\nDid you mean:\n")
		for _, s := range suggestions {
			d, _ := agents.Lookup(roster, s)
			fmt.Fprintf(&sb, "- %s: %s\n", d.Name, truncate(d.Description, rosterDescLen))
		}
	}

	if len(roster) > 0 {
		sb.WriteString("\nAvailable agents:\n")
		writeRosterLines(&sb, roster)
	} else {
		sb.WriteString("\nNo agents are declared. Scanned directories:\n")
		for _, root := range roots {
			fmt.Fprintf(&sb, "- %s (%s)\n", root.Dir, root.Origin)
		}
	}

	fmt.Fprintf(&sb, "\nRetry with:\n%s\n", retry)

	res := mcp.NewToolResultError(sb.String())
	res.StructuredContent = map[string]any{
		"error":       "unknown_recipient",
		"to_agent":    to,
		"suggestions": suggestions,
		"roster":      names,
		"retry":       retry,
	}
	return res
}
