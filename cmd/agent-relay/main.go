// agent-relay: inter-agent messaging MCP server
//
// Lets independent agent sessions of an AI coding assistant exchange
// addressed, priority-ordered messages through a file-backed inbox per
// recipient.
//
// Usage:
//
//	agent-relay serve          # Start MCP server (stdio transport)
//	agent-relay agents         # Print the discovered agent roster
//	agent-relay peek <agent>   # Show an agent's inbox without marking it read
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/HendryAvila/agent-relay/internal/agents"
	"github.com/HendryAvila/agent-relay/internal/config"
	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/HendryAvila/agent-relay/internal/metrics"
	relayserver "github.com/HendryAvila/agent-relay/internal/server"
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = withConfig(runServe)
	case "agents":
		err = withConfig(runAgents)
	case "peek":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: agent-relay peek <agent>\n")
			os.Exit(1)
		}
		err = withConfig(func(cfg *config.Config, log zerolog.Logger) error {
			return runPeek(cfg, log, os.Args[2])
		})
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("agent-relay v%s\n", relayserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withConfig loads configuration, builds the logger, and runs fn.
func withConfig(fn func(*config.Config, zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return fn(cfg, newLogger(cfg))
}

// newLogger writes to stderr; stdout carries the MCP transport.
func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.LogFormat == config.LogFormatConsole {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}
	return logger.Level(cfg.LogLevel)
}

func runServe(cfg *config.Config, log zerolog.Logger) error {
	s, cleanup, err := relayserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	return server.ServeStdio(s)
}

func runAgents(cfg *config.Config, log zerolog.Logger) error {
	dir := relayserver.NewResolver(cfg, log)
	roster := dir.Discover()
	if len(roster) == 0 {
		fmt.Println("No agents found. Scanned:")
		for _, root := range dir.Roots() {
			fmt.Printf("  %s (%s)\n", root.Dir, root.Origin)
		}
		return nil
	}

	project, global := agents.GroupByOrigin(roster)
	for _, group := range []struct {
		title string
		descs []agents.Descriptor
	}{{"Project agents", project}, {"Global agents", global}} {
		if len(group.descs) == 0 {
			continue
		}
		fmt.Printf("%s:\n", group.title)
		for _, d := range group.descs {
			fmt.Printf("  %-24s %s\n", d.Name, d.Description)
		}
	}
	return nil
}

func runPeek(cfg *config.Config, log zerolog.Logger, agent string) error {
	store, err := relayserver.OpenStore(cfg, log, nil)
	if err != nil {
		return fmt.Errorf("opening message store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	stats, err := store.Stats(ctx, agent)
	if err != nil {
		return err
	}
	unread, err := store.List(ctx, agent, messages.ListOptions{})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d messages, %d unread (high %d, medium %d, low %d), %d archived\n",
		stats.Agent, stats.Total, stats.Unread,
		stats.ByUnread[messages.PriorityHigh], stats.ByUnread[messages.PriorityMedium], stats.ByUnread[messages.PriorityLow],
		stats.Archived)
	for _, m := range unread {
		sent := "unknown"
		if !m.Timestamp.IsZero() {
			sent = humanize.Time(m.Timestamp)
		}
		fmt.Printf("  [%-6s] %s from %s, %s\n", m.Priority, m.ID, m.From, sent)
		fmt.Printf("           %s\n", firstLine(m.Body))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `agent-relay v%s: inter-agent messaging MCP server

Usage:
  agent-relay serve          Start the MCP server (stdio transport)
  agent-relay agents         Print the discovered agent roster
  agent-relay peek <agent>   Show an agent's inbox without marking it read
  agent-relay version        Print the version

Environment:
  MESSAGES_DIR               Storage root (default: .claude/messages)
  CLAUDE_PROJECT_DIR         Project root (default: working directory)
  RELAY_PROJECT_AGENTS_DIR   Project agent descriptors (default: <project>/.claude/agents)
  RELAY_GLOBAL_AGENTS_DIR    Global agent descriptors (default: ~/.claude/agents)
  RELAY_BACKEND              file (default) or sqlite
  RELAY_LOG_LEVEL            debug, info (default), warn, error
  RELAY_LOG_FORMAT           json (default) or console
  RELAY_METRICS_ADDR         Serve Prometheus metrics on this address

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "agent-relay": {
        "command": "agent-relay",
        "args": ["serve"]
      }
    }
  }
`, relayserver.Version)
}
