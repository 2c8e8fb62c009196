// Package config provides configuration for the agent monitor.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultRetentionDays = 90

// Config holds the agent monitor configuration.
type Config struct {
	// Root of the externally-owned state directory.
	OpenclawDir string

	// Server settings
	Port     int
	BasePath string

	// Durable store
	DatabasePath string

	// History retention in days. Zero disables pruning.
	RetentionDays int
}

// Load loads configuration from environment variables.
func Load() *Config {
	dir := getEnv("OPENCLAW_DIR", defaultOpenclawDir())
	retention, ok := os.LookupEnv("RUN_HISTORY_RETENTION_DAYS")
	if !ok {
		retention = strconv.Itoa(defaultRetentionDays)
	}
	return &Config{
		OpenclawDir:   dir,
		Port:          getEnvInt("PORT", 8787),
		BasePath:      normalizeBasePath(getEnv("BASE_PATH", "/agent-monitor")),
		DatabasePath:  getEnv("RUN_HISTORY_DB", filepath.Join(dir, "subagents", "run_history.db")),
		RetentionDays: ParseRetentionDays(retention),
	}
}

// RunsFile is the path of the external run snapshot.
func (c *Config) RunsFile() string {
	return filepath.Join(c.OpenclawDir, "subagents", "runs.json")
}

// AgentsDir is the root of the per-agent state directories.
func (c *Config) AgentsDir() string {
	return filepath.Join(c.OpenclawDir, "agents")
}

// ParseRetentionDays interprets the retention setting. The sentinels
// "", "0", "none", "off", "unlimited", "infinite" and "-1" disable
// pruning, as do non-positive integers; an unparseable value falls back to
// the default.
func ParseRetentionDays(raw string) int {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "none", "off", "unlimited", "infinite", "-1":
		return 0
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultRetentionDays
	}
	if days <= 0 {
		return 0
	}
	return days
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = "/agent-monitor"
	}
	return strings.TrimRight(p, "/")
}

func defaultOpenclawDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".openclaw")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
