// Package resources implements MCP resource handlers for the relay.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (relay://...) following MCP conventions.
// Reading a resource never marks messages read.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// AgentsURI addresses the current roster.
	AgentsURI = "relay://agents"
	// InboxURITemplate addresses one agent's inbox.
	InboxURITemplate = "relay://inbox/{agent}"
)

// Handler manages relay resource endpoints.
type Handler struct {
	store messages.Store
	dir   agents.Directory
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store messages.Store, dir agents.Directory) *Handler {
	return &Handler{store: store, dir: dir}
}

// AgentsResource returns the MCP resource definition for the roster.
func (h *Handler) AgentsResource() mcp.Resource {
	return mcp.NewResource(
		AgentsURI,
		"Agent Roster",
		mcp.WithResourceDescription("Agents that can send and receive relay messages"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleAgents returns the current roster as JSON.
func (h *Handler) HandleAgents(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	roster := h.dir.Discover()
	if roster == nil {
		roster = []agents.Descriptor{}
	}
	return jsonResource(req.Params.URI, roster)
}

// InboxTemplate returns the MCP resource template for an agent's inbox.
func (h *Handler) InboxTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		InboxURITemplate,
		"Agent Inbox",
		mcp.WithTemplateDescription("Inbox counts and unread messages for one agent, without marking them read"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// inboxView is the JSON shape of an inbox resource.
type inboxView struct {
	messages.InboxStats
	Messages []messages.Message `json:"messages"`
}

// HandleInbox returns an agent's stats and unread messages as JSON.
func (h *Handler) HandleInbox(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	agent, err := agentFromURI(uri)
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}

	stats, err := h.store.Stats(ctx, agent)
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}
	unread, err := h.store.List(ctx, agent, messages.ListOptions{})
	if err != nil {
		return errorResource(uri, err.Error()), nil
	}

	return jsonResource(uri, inboxView{InboxStats: stats, Messages: unread})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
