// Package snapshot reads the externally-owned runs.json file. The file is
// rewritten frequently by the orchestration process and may be missing or
// torn mid-write; both cases read as an empty snapshot, never an error.
package snapshot

import (
	"encoding/json"
	"os"

	"github.com/xiaot623/agentmon/internal/tokenusage"
)

// RunRecord is one run as written by the orchestration process. The
// upstream schema drifts between writer versions, so fields stay untyped
// and are probed by key.
type RunRecord map[string]any

// Load reads the snapshot at path.
func Load(path string) map[string]RunRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]RunRecord{}
	}
	var parsed struct {
		Runs map[string]RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Runs == nil {
		return map[string]RunRecord{}
	}
	return parsed.Runs
}

// Str returns the value under key when it is a string.
func (r RunRecord) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Object returns the value under key when it is a JSON object.
func (r RunRecord) Object(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

// Count returns the first key whose value coerces to a non-negative count.
// Keys that are absent or fail coercion fall through to the next alias.
func (r RunRecord) Count(keys ...string) (int64, bool) {
	for _, key := range keys {
		v, ok := r[key]
		if !ok {
			continue
		}
		if n, ok := tokenusage.Coerce(v); ok {
			return n, true
		}
	}
	return 0, false
}
