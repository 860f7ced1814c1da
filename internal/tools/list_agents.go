package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListAgentsTool handles the list_agents MCP tool.
type ListAgentsTool struct {
	dir agents.Directory
}

// NewListAgentsTool creates a ListAgentsTool over the given agent directory.
func NewListAgentsTool(dir agents.Directory) *ListAgentsTool {
	return &ListAgentsTool{dir: dir}
}

// Definition returns the MCP tool definition for list_agents.
func (t *ListAgentsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_agents",
		mcp.WithDescription(
			"List every agent you can message, grouped by where it is declared. "+
				"Call this before create_message when you are unsure of a recipient's exact name.",
		),
	)
}

// Handle processes the list_agents tool call. It never fails: an empty
// roster produces an explanatory empty state.
func (t *ListAgentsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roster := t.dir.Discover()

	var sb strings.Builder
	sb.WriteString("# Available Agents\n\n")

	if len(roster) == 0 {
		sb.WriteString("No agents found. Scanned directories:\n\n")
		for _, root := range t.dir.Roots() {
			fmt.Fprintf(&sb, "- %s (%s)\n", root.Dir, root.Origin)
		}
		sb.WriteString("\nDeclare an agent with a markdown file in one of these directories whose " +
			"front matter sets `name:` and `description:`.\n\n")
		writeUsageTips(&sb)
		return mcp.NewToolResultText(sb.String()), nil
	}

	project, global := agents.GroupByOrigin(roster)
	writeGroup(&sb, "Project Agents", project)
	writeGroup(&sb, "Global Agents", global)
	writeUsageTips(&sb)

	return mcp.NewToolResultText(sb.String()), nil
}

func writeGroup(sb *strings.Builder, title string, group []agents.Descriptor) {
	if len(group) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s (%d)\n\n", title, len(group))
	for _, d := range group {
		fmt.Fprintf(sb, "- **%s**: %s\n", d.Name, d.Description)
	}
	sb.WriteString("\n")
}

func writeUsageTips(sb *strings.Builder) {
	sb.WriteString("## Usage Tips\n\n")
	sb.WriteString("- Use the same agent name in every session so replies reach you.\n")
	sb.WriteString("- Check your inbox at session start: read_messages(agent_name=\"your-name\")\n")
	sb.WriteString("- Send updates to relevant agents: create_message(from_agent=\"your-name\", to_agent=\"target\", message=\"...\")\n")
}
