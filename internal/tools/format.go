package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/dustin/go-humanize"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

const (
	previewLen        = 200
	retryPreviewLen   = 40
	rosterDescLen     = 60
	warningRosterSize = 10
	hintRosterSize    = 5
)

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// plural formats a count with a naively pluralized noun.
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// age renders how long ago ts was, or "unknown age" for legacy records
// without a timestamp.
func age(ts time.Time) string {
	if ts.IsZero() {
		return "unknown age"
	}
	return humanize.RelTime(ts, timeNow(), "ago", "from now")
}

func writeRosterLines(sb *strings.Builder, roster []agents.Descriptor) {
	for _, d := range roster {
		fmt.Fprintf(sb, "- %s: %s\n", d.Name, truncate(d.Description, rosterDescLen))
	}
}

// unknownAgentWarning is prefixed to read and clear reports for names that
// are not in the roster. The operation still runs.
func unknownAgentWarning(name string, roster []agents.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Warning: agent %q is not in the agent roster.\n", name)
	sb.WriteString("Use the same agent name when sending and reading messages")
	if len(roster) == 0 {
		sb.WriteString(".\n")
	} else {
		names := agents.Names(roster)
		more := ""
		if len(names) > warningRosterSize {
			names, more = names[:warningRosterSize], ", ..."
		}
		fmt.Fprintf(&sb, "; known agents: %s%s.\n", strings.Join(names, ", "), more)
	}
	sb.WriteString("Continuing anyway.\n\n")
	return sb.String()
}

// knownAgentsHint names the first few roster entries for tool descriptions.
func knownAgentsHint(names []string) string {
	if len(names) == 0 {
		return ""
	}
	more := ""
	if len(names) > hintRosterSize {
		names, more = names[:hintRosterSize], ", ..."
	}
	return " Known agents include: " + strings.Join(names, ", ") + more + "."
}
