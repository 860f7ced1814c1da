package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/agent-relay/internal/config"
	"github.com/HendryAvila/agent-relay/internal/messages"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	root := t.TempDir()
	agentsDir := filepath.Join(root, "agents")
	if err := os.MkdirAll(agentsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"lead", "test-writer"} {
		desc := "---\nname: " + name + "\ndescription: " + name + " agent\n---\n"
		if err := os.WriteFile(filepath.Join(agentsDir, name+".md"), []byte(desc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &config.Config{
		MessagesDir:      filepath.Join(root, "messages"),
		ProjectDir:       root,
		ProjectAgentsDir: agentsDir,
		GlobalAgentsDir:  filepath.Join(root, "global"),
		Backend:          backend,
		LogLevel:         zerolog.Disabled,
		LogFormat:        config.LogFormatJSON,
	}
}

// call sends one JSON-RPC request to the server and returns the raw response.
func call(t *testing.T, s *mcpserver.MCPServer, method string, params any) string {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.HandleMessage(context.Background(), req)
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshaling response: %v", err)
	}
	return string(out)
}

func TestNew_RegistersRelaySurface(t *testing.T) {
	s, cleanup, err := New(testConfig(t, config.BackendFile), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	tools := call(t, s, "tools/list", map[string]any{})
	for _, name := range []string{"list_agents", "create_message", "read_messages", "clear_messages"} {
		if !strings.Contains(tools, `"`+name+`"`) {
			t.Errorf("tools/list missing %s: %s", name, tools)
		}
	}

	prompts := call(t, s, "prompts/list", map[string]any{})
	for _, name := range []string{"inbox-check", "send-update"} {
		if !strings.Contains(prompts, `"`+name+`"`) {
			t.Errorf("prompts/list missing %s: %s", name, prompts)
		}
	}

	templates := call(t, s, "resources/templates/list", map[string]any{})
	if !strings.Contains(templates, "relay://inbox/{agent}") {
		t.Errorf("resource templates missing inbox: %s", templates)
	}
}

func TestNew_EndToEndOverJSONRPC(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s, cleanup, err := New(testConfig(t, backend), zerolog.Nop())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer cleanup()

			for _, m := range []struct{ body, priority string }{{"A", "medium"}, {"B", "high"}, {"C", "low"}} {
				resp := call(t, s, "tools/call", map[string]any{
					"name": "create_message",
					"arguments": map[string]any{
						"from_agent": "lead", "to_agent": "test-writer",
						"message": m.body, "priority": m.priority,
					},
				})
				if !strings.Contains(resp, "Message sent: msg-") {
					t.Fatalf("create_message response: %s", resp)
				}
			}

			resp := call(t, s, "tools/call", map[string]any{
				"name":      "read_messages",
				"arguments": map[string]any{"agent_name": "test-writer"},
			})
			b, a, c := strings.Index(resp, `\nB\n`), strings.Index(resp, `\nA\n`), strings.Index(resp, `\nC\n`)
			if b < 0 || !(b < a && a < c) {
				t.Errorf("want bodies B, A, C in order: %s", resp)
			}

			resp = call(t, s, "tools/call", map[string]any{
				"name":      "read_messages",
				"arguments": map[string]any{"agent_name": "test-writer"},
			})
			if !strings.Contains(resp, "No unread messages for test-writer") {
				t.Errorf("second read: %s", resp)
			}
		})
	}
}

func TestNew_UnknownRecipientIsToolError(t *testing.T) {
	s, cleanup, err := New(testConfig(t, config.BackendFile), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	resp := call(t, s, "tools/call", map[string]any{
		"name": "create_message",
		"arguments": map[string]any{
			"from_agent": "lead", "to_agent": "test-witer", "message": "hi",
		},
	})
	if !strings.Contains(resp, `"isError":true`) || !strings.Contains(resp, "test-writer") {
		t.Errorf("unknown recipient response: %s", resp)
	}
	if !strings.Contains(resp, `"error":"unknown_recipient"`) {
		t.Errorf("structured content missing: %s", resp)
	}
}

func TestOpenStore_SelectsBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{config.BackendFile, "*messages.FileStore"},
		{config.BackendSQLite, "*messages.SQLiteStore"},
	}
	for _, tt := range tests {
		cfg := testConfig(t, tt.backend)
		store, err := OpenStore(cfg, zerolog.Nop(), nil)
		if err != nil {
			t.Fatalf("OpenStore(%s): %v", tt.backend, err)
		}
		switch store.(type) {
		case *messages.FileStore:
			if tt.want != "*messages.FileStore" {
				t.Errorf("backend %s opened a file store", tt.backend)
			}
		case *messages.SQLiteStore:
			if tt.want != "*messages.SQLiteStore" {
				t.Errorf("backend %s opened a sqlite store", tt.backend)
			}
		}
		_ = store.Close()
	}

	if _, err := OpenStore(&config.Config{Backend: "redis", MessagesDir: t.TempDir()}, zerolog.Nop(), nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
