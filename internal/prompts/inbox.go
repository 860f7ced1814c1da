// Package prompts implements MCP prompt handlers for relay etiquette.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// InboxCheckPrompt handles the inbox-check MCP prompt.
// It tells the agent to read its inbox and triage by priority.
type InboxCheckPrompt struct{}

// NewInboxCheckPrompt creates an InboxCheckPrompt.
func NewInboxCheckPrompt() *InboxCheckPrompt {
	return &InboxCheckPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *InboxCheckPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("inbox-check",
		mcp.WithPromptDescription(
			"Check your relay inbox and act on what other agents sent you, "+
				"high priority first.",
		),
		mcp.WithArgument("agent_name",
			mcp.ArgumentDescription("Your agent name, exactly as listed by list_agents"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the inbox-check prompt request.
func (p *InboxCheckPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	agent := promptArg(req, "agent_name", "your-agent-name")

	return &mcp.GetPromptResult{
		Description: "Relay inbox check",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"You are the agent %q. Please run `read_messages(agent_name=%q)` to fetch your unread messages.\n\n"+
						"Then:\n"+
						"1. Handle HIGH priority messages before anything else\n"+
						"2. Open every file listed under Files before acting on a message\n"+
						"3. Reply to senders who asked a question with `create_message(from_agent=%q, ...)`\n"+
						"4. If nothing is unread, say so and continue with your task",
					agent, agent, agent,
				)),
			},
		},
	}, nil
}

// promptArg returns a prompt argument or fallback when it is absent.
func promptArg(req mcp.GetPromptRequest, key, fallback string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[key]; ok && v != "" {
			return v
		}
	}
	return fallback
}
