package resources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) (*Handler, messages.Store) {
	t.Helper()
	store, err := messages.NewFileStore(t.TempDir(), zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	dir := t.TempDir()
	desc := "---\nname: qa\ndescription: Tests things\n---\n"
	if err := os.WriteFile(filepath.Join(dir, "qa.md"), []byte(desc), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewHandler(store, agents.NewResolver(dir, "", zerolog.Nop())), store
}

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func contentText(t *testing.T, contents []mcp.ResourceContents) (string, string) {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content = %T, want TextResourceContents", contents[0])
	}
	return tc.MIMEType, tc.Text
}

func TestHandleAgents(t *testing.T) {
	h, _ := newTestHandler(t)

	contents, err := h.HandleAgents(context.Background(), readReq(AgentsURI))
	if err != nil {
		t.Fatalf("HandleAgents: %v", err)
	}
	mime, text := contentText(t, contents)
	if mime != "application/json" {
		t.Errorf("MIME = %q", mime)
	}

	var roster []agents.Descriptor
	if err := json.Unmarshal([]byte(text), &roster); err != nil {
		t.Fatalf("roster is not JSON: %v", err)
	}
	if len(roster) != 1 || roster[0].Name != "qa" || roster[0].Origin != agents.OriginProject {
		t.Errorf("roster = %+v", roster)
	}
}

func TestHandleInbox_DoesNotMarkRead(t *testing.T) {
	h, store := newTestHandler(t)
	ctx := context.Background()
	if _, err := store.Create(ctx, messages.NewMessage{From: "lead", To: "qa", Body: "run the suite", Priority: "high"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		contents, err := h.HandleInbox(ctx, readReq("relay://inbox/qa"))
		if err != nil {
			t.Fatalf("HandleInbox: %v", err)
		}
		_, text := contentText(t, contents)

		var view struct {
			Agent    string             `json:"agent"`
			Unread   int                `json:"unread"`
			Messages []messages.Message `json:"messages"`
		}
		if err := json.Unmarshal([]byte(text), &view); err != nil {
			t.Fatalf("inbox is not JSON: %v\n%s", err, text)
		}
		if view.Agent != "qa" || view.Unread != 1 || len(view.Messages) != 1 {
			t.Errorf("read %d: view = %+v", i, view)
		}
	}
}

func TestHandleInbox_BadURI(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, uri := range []string{"relay://inbox/", "relay://other/qa", "relay://inbox/..%2Fetc"} {
		contents, err := h.HandleInbox(context.Background(), readReq(uri))
		if err != nil {
			t.Fatalf("HandleInbox(%q): %v", uri, err)
		}
		mime, text := contentText(t, contents)
		if mime != "text/plain" || !strings.HasPrefix(text, "Error: ") {
			t.Errorf("HandleInbox(%q) = %s %q, want error resource", uri, mime, text)
		}
	}
}

func TestAgentFromURI_Decodes(t *testing.T) {
	got, err := agentFromURI("relay://inbox/api%20designer")
	if err != nil {
		t.Fatalf("agentFromURI: %v", err)
	}
	if got != "api designer" {
		t.Errorf("agent = %q, want %q", got, "api designer")
	}
}
