package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SendUpdatePrompt handles the send-update MCP prompt.
// It guides the agent to hand concrete findings to another agent.
type SendUpdatePrompt struct{}

// NewSendUpdatePrompt creates a SendUpdatePrompt.
func NewSendUpdatePrompt() *SendUpdatePrompt {
	return &SendUpdatePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SendUpdatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("send-update",
		mcp.WithPromptDescription(
			"Send another agent a concrete update about your work through the relay.",
		),
		mcp.WithArgument("from_agent",
			mcp.ArgumentDescription("Your agent name (sender)"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("to_agent",
			mcp.ArgumentDescription("Recipient agent name. Leave empty to pick one from list_agents"),
		),
	)
}

// Handle processes the send-update prompt request.
func (p *SendUpdatePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	from := promptArg(req, "from_agent", "your-agent-name")
	to := promptArg(req, "to_agent", "")

	recipientStep := fmt.Sprintf("1. The recipient is %q. If `create_message` reports an unknown recipient, use its suggested retry\n", to)
	if to == "" {
		recipientStep = "1. Run `list_agents` and pick the agent whose description matches the update\n"
	}

	return &mcp.GetPromptResult{
		Description: "Send a relay update",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please send an update through the agent relay.\n\n" +
						recipientStep +
						"2. Write the message with concrete findings: what changed, decisions made, and open questions\n" +
						"3. List the files the recipient should review in `context_files`\n" +
						"4. Use priority `high` only when the recipient is blocked without it\n" +
						fmt.Sprintf("5. Send it with `create_message(from_agent=%q, to_agent=..., message=..., priority=...)`", from),
				),
			},
		},
	}, nil
}
