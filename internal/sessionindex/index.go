// Package sessionindex reads the per-agent sessions.json files and caches
// them for the duration of one reconciliation pass. The files are owned by
// the agent processes and can change between passes, so the cache must be
// invalidated at the start of each pass.
package sessionindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one session record. Token fields vary by writer version, so the
// shape stays untyped.
type Entry map[string]any

// SessionID returns the transcript identifier for the entry.
func (e Entry) SessionID() string {
	s, _ := e["sessionId"].(string)
	return s
}

// AgentIDFromSessionKey extracts the owning agent from an
// "agent:<agentId>:subagent:<uuid>" session key. Malformed keys map to
// "unknown".
func AgentIDFromSessionKey(sessionKey string) string {
	parts := strings.Split(sessionKey, ":")
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[1]
}

// Cache holds per-agent session indexes for a single reconciliation pass.
// Keyed strictly by agent id; entries never leak between agents.
type Cache struct {
	agentsDir string
	byAgent   map[string]map[string]Entry
}

// NewCache creates a cache over the given agents directory.
func NewCache(agentsDir string) *Cache {
	return &Cache{agentsDir: agentsDir, byAgent: map[string]map[string]Entry{}}
}

// Invalidate drops every cached index. Called once at the start of each
// reconciliation pass.
func (c *Cache) Invalidate() {
	c.byAgent = map[string]map[string]Entry{}
}

// Index returns the session index for an agent, loading it on first use.
// A missing or malformed index file reads as empty.
func (c *Cache) Index(agentID string) map[string]Entry {
	if idx, ok := c.byAgent[agentID]; ok {
		return idx
	}
	idx := loadIndex(filepath.Join(c.agentsDir, agentID, "sessions", "sessions.json"))
	c.byAgent[agentID] = idx
	return idx
}

// Lookup finds the exact session-key entry in the given agent's index.
func (c *Cache) Lookup(agentID, sessionKey string) (Entry, bool) {
	if sessionKey == "" {
		return nil, false
	}
	entry, ok := c.Index(agentID)[sessionKey]
	return entry, ok
}

// TranscriptPath resolves a session key to its transcript file. The owning
// agent (derived from the key) is tried first, then the remaining agent
// directories, matching how the session files are laid out on disk.
// Returns "" when no transcript can be located.
func (c *Cache) TranscriptPath(sessionKey string) string {
	if sessionKey == "" {
		return ""
	}
	owner := AgentIDFromSessionKey(sessionKey)
	if p := c.transcriptUnder(owner, sessionKey); p != "" {
		return p
	}
	dirs, err := os.ReadDir(c.agentsDir)
	if err != nil {
		return ""
	}
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == owner {
			continue
		}
		if p := c.transcriptUnder(d.Name(), sessionKey); p != "" {
			return p
		}
	}
	return ""
}

func (c *Cache) transcriptUnder(agentID, sessionKey string) string {
	entry, ok := c.Lookup(agentID, sessionKey)
	if !ok {
		return ""
	}
	sid := entry.SessionID()
	if sid == "" {
		return ""
	}
	path := filepath.Join(c.agentsDir, agentID, "sessions", sid+".jsonl")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadIndex(path string) map[string]Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]Entry{}
	}
	var idx map[string]Entry
	if err := json.Unmarshal(data, &idx); err != nil || idx == nil {
		return map[string]Entry{}
	}
	return idx
}
