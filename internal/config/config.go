// Package config resolves the relay's process-wide settings.
//
// Settings are fixed at startup and threaded explicitly into the stores and
// the resolver; nothing downstream reads the environment on its own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// DefaultMessagesDir is where inboxes live relative to the project root,
// matching the layout the installer scaffolds.
const DefaultMessagesDir = ".claude/messages"

// Config holds all configuration for the relay.
type Config struct {
	// MessagesDir is the absolute storage root for inbox and archive collections.
	MessagesDir string
	// ProjectDir is the project the host assistant runs in.
	ProjectDir string
	// ProjectAgentsDir holds project-local agent descriptors.
	ProjectAgentsDir string
	// GlobalAgentsDir holds user-level agent descriptors.
	GlobalAgentsDir string

	Backend     string
	LogLevel    zerolog.Level
	LogFormat   string
	MetricsAddr string
}

// getenv is swapped in tests.
var getenv = os.Getenv

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; it never overrides variables
// that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	home, _ := os.UserHomeDir()

	projectDir := getEnv("CLAUDE_PROJECT_DIR", cwd)

	cfg := &Config{
		ProjectDir:       projectDir,
		MessagesDir:      resolve(projectDir, getEnv("MESSAGES_DIR", DefaultMessagesDir)),
		ProjectAgentsDir: resolve(projectDir, getEnv("RELAY_PROJECT_AGENTS_DIR", filepath.Join(".claude", "agents"))),
		GlobalAgentsDir:  getEnv("RELAY_GLOBAL_AGENTS_DIR", filepath.Join(home, ".claude", "agents")),
		Backend:          strings.ToLower(getEnv("RELAY_BACKEND", BackendFile)),
		LogFormat:        strings.ToLower(getEnv("RELAY_LOG_FORMAT", LogFormatJSON)),
		MetricsAddr:      getenv("RELAY_METRICS_ADDR"),
	}

	switch cfg.Backend {
	case BackendFile, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid RELAY_BACKEND %q: must be one of: file, sqlite", cfg.Backend)
	}

	switch cfg.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		return nil, fmt.Errorf("invalid RELAY_LOG_FORMAT %q: must be one of: json, console", cfg.LogFormat)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("RELAY_LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_LOG_LEVEL: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	cfg.LogLevel = level

	return cfg, nil
}

// AgentRoots returns the descriptor directories in precedence order.
func (c *Config) AgentRoots() []string {
	return []string{c.ProjectAgentsDir, c.GlobalAgentsDir}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// resolve anchors a relative path at base.
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
