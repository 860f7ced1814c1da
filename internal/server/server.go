// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/config"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/HendryAvila/agent-relay/internal/metrics"
	"github.com/HendryAvila/agent-relay/internal/prompts"
	"github.com/HendryAvila/agent-relay/internal/resources"
	"github.com/HendryAvila/agent-relay/internal/tools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Name is the MCP server name announced to hosts.
const Name = "agent-relay"

// Version is set at build time via ldflags.
var Version = "dev"

// OpenStore opens the message store selected by cfg.Backend under
// cfg.MessagesDir.
func OpenStore(cfg *config.Config, log zerolog.Logger, obs messages.Observer) (messages.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return messages.NewSQLiteStore(cfg.MessagesDir, log, obs)
	case config.BackendFile, "":
		return messages.NewFileStore(cfg.MessagesDir, log, obs)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// NewResolver builds the agent directory resolver from cfg.
func NewResolver(cfg *config.Config, log zerolog.Logger) *agents.Resolver {
	return agents.NewResolver(cfg.ProjectAgentsDir, cfg.GlobalAgentsDir, log)
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the message store and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(cfg *config.Config, log zerolog.Logger) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	store, err := OpenStore(cfg, log, metrics.Recorder{})
	if err != nil {
		return nil, noop, fmt.Errorf("opening message store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing message store")
		}
	}

	dir := NewResolver(cfg, log)

	log.Info().
		Str("backend", cfg.Backend).
		Str("messages_dir", cfg.MessagesDir).
		Str("project_agents", cfg.ProjectAgentsDir).
		Str("global_agents", cfg.GlobalAgentsDir).
		Msg("relay configured")

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	register(s, store, dir, log)

	return s, cleanup, nil
}

// register adds every tool, prompt, and resource to s.
func register(s *server.MCPServer, store messages.Store, dir agents.Directory, log zerolog.Logger) {
	toolLog := log.With().Str("component", "tools").Logger()

	// --- Register tools ---

	listAgents := tools.NewListAgentsTool(dir)
	s.AddTool(listAgents.Definition(), tools.Instrument("list_agents", toolLog, listAgents.Handle))

	createMessage := tools.NewCreateMessageTool(store, dir, toolLog)
	s.AddTool(createMessage.Definition(), tools.Instrument("create_message", toolLog, createMessage.Handle))

	readMessages := tools.NewReadMessagesTool(store, dir, toolLog)
	s.AddTool(readMessages.Definition(), tools.Instrument("read_messages", toolLog, readMessages.Handle))

	clearMessages := tools.NewClearMessagesTool(store, dir, toolLog)
	s.AddTool(clearMessages.Definition(), tools.Instrument("clear_messages", toolLog, clearMessages.Handle))

	// --- Register prompts ---

	inboxCheck := prompts.NewInboxCheckPrompt()
	s.AddPrompt(inboxCheck.Definition(), inboxCheck.Handle)

	sendUpdate := prompts.NewSendUpdatePrompt()
	s.AddPrompt(sendUpdate.Definition(), sendUpdate.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store, dir)
	s.AddResource(resourceHandler.AgentsResource(), resourceHandler.HandleAgents)
	s.AddResourceTemplate(resourceHandler.InboxTemplate(), resourceHandler.HandleInbox)
}

// noop is a no-op cleanup function used when construction fails.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the relay.
func serverInstructions() string {
	return `You have access to agent-relay, a messaging relay between the agents of this project.

## WHAT IT IS FOR

Agents run in separate, stateless sessions. The relay gives each agent an inbox
so one agent can hand findings, questions, and decisions to another. Messages
persist on disk until they are read and archived.

## IDENTITY

You declare your own identity. Use the same agent name every time you send and
read, ideally a name shown by list_agents. Nothing verifies who you are, so do
not send as another agent.

## WORKFLOW

1. At session start call read_messages(agent_name="<you>") and handle HIGH
   priority messages first. Reading marks messages read; pass mark_as_read=false
   to peek.
2. Call list_agents when you are unsure of a recipient's exact name.
3. Send with create_message(from_agent="<you>", to_agent="<them>", message="...").
   Be concrete: findings, file paths, decisions, open questions. Put files the
   recipient must open in context_files.
4. If create_message reports an unknown recipient, use one of the suggested names
   and the retry call it returns. Do not invent names.
5. Periodically call clear_messages(agent_name="<you>") to archive old read
   messages. Unread messages are never archived.

## PRIORITY

- high: the recipient is blocked or something is broken
- medium: normal hand-offs (default)
- low: FYI, no action needed

Do not blindly retry create_message after a failure you did not read: each
successful call creates a new message.`
}
