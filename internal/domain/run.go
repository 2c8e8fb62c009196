// Package domain defines the core domain models for the agent monitor.
package domain

// RunStatus is the derived lifecycle status of a run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
	RunStatusTimeout RunStatus = "timeout"
	RunStatusUnknown RunStatus = "unknown"
)

// HistoryRow is one persisted run_history row. Timestamps are milliseconds
// since epoch; nil pointers mean the upstream snapshot never reported the
// field.
type HistoryRow struct {
	RunID           string
	Label           string
	AgentID         string
	Model           string
	Status          RunStatus
	StartedAt       int64
	EndedAt         *int64
	RuntimeMs       int64
	TimeoutSeconds  *int64
	Task            string
	SessionKey      string
	OutcomeStatus   string
	OutcomeJSON     string
	RawJSON         string
	InputTokens     *int64
	OutputTokens    *int64
	TotalTokens     *int64
	LastHeartbeatAt *int64
	CreatedAt       int64
	UpdatedAt       int64
}

// Outcome is the compact outcome shape returned in run listings.
type Outcome struct {
	Status string `json:"status"`
}

// Run is one run history item as served by the API.
type Run struct {
	RunID           string    `json:"runId"`
	Label           string    `json:"label"`
	AgentID         string    `json:"agentId"`
	Model           string    `json:"model"`
	Status          RunStatus `json:"status"`
	StartedAt       int64     `json:"startedAt"`
	EndedAt         *int64    `json:"endedAt,omitempty"`
	RuntimeMs       int64     `json:"runtimeMs"`
	TimeoutSeconds  *int64    `json:"timeoutSeconds,omitempty"`
	Task            string    `json:"task"`
	SessionKey      string    `json:"sessionKey"`
	InputTokens     *int64    `json:"inputTokens,omitempty"`
	OutputTokens    *int64    `json:"outputTokens,omitempty"`
	TotalTokens     *int64    `json:"totalTokens,omitempty"`
	LastHeartbeatAt *int64    `json:"lastHeartbeatAt,omitempty"`
	Outcome         Outcome   `json:"outcome"`
}

// RunDetail is a single run enriched with its full outcome object and
// transcript excerpts. The outer Outcome field overrides the compact one
// embedded via Run.
type RunDetail struct {
	Run
	Outcome  map[string]any      `json:"outcome"`
	Messages []TranscriptMessage `json:"messages"`
}

// RunsQuery selects a page of run history.
type RunsQuery struct {
	Limit   int
	Offset  int
	AgentID string
	Status  string
}

// RunsPage is one page of run history.
type RunsPage struct {
	Items  []Run `json:"items"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// TranscriptMessage is a sanitized excerpt of one transcript message.
// Produced on demand for run detail, never persisted.
type TranscriptMessage struct {
	Role      string      `json:"role"`
	Text      string      `json:"text"`
	Timestamp *int64      `json:"timestamp,omitempty"`
	ToolCalls []ToolEvent `json:"toolCalls,omitempty"`
}

// ToolEvent is one normalized tool-call or tool-result event inside a
// transcript message. Previews are length-bounded; the full sanitized
// payloads are retained alongside.
type ToolEvent struct {
	Name          string `json:"name"`
	Args          string `json:"args,omitempty"`
	ArgsPreview   string `json:"argsPreview,omitempty"`
	Result        string `json:"result,omitempty"`
	ResultPreview string `json:"resultPreview,omitempty"`
}
