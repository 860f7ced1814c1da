package resources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/HendryAvila/agent-relay/internal/messages"
)

const inboxURIPrefix = "relay://inbox/"

// agentFromURI extracts and validates the agent name of an inbox URI.
// Names may be percent-encoded.
func agentFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, inboxURIPrefix)
	if !ok || raw == "" {
		return "", fmt.Errorf("expected %s{agent}, got %q", inboxURIPrefix, uri)
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("decoding agent name in %q: %w", uri, err)
	}
	return messages.ValidateIdentity("agent", name)
}
