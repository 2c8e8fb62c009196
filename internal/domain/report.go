package domain

// AgentTotals accumulates runtime and run count for one agent.
type AgentTotals struct {
	RuntimeMs int64 `json:"runtimeMs"`
	RunCount  int64 `json:"runCount"`
}

// DailyEntry is one calendar day of the daily stats report. Days with no
// runs still appear, zero-filled.
type DailyEntry struct {
	Date      string                  `json:"date"`
	RuntimeMs int64                   `json:"runtimeMs"`
	RunCount  int64                   `json:"runCount"`
	Agents    map[string]*AgentTotals `json:"agents"`
}

// DailyStatsTotals sums the daily stats window.
type DailyStatsTotals struct {
	RuntimeMs    int64 `json:"runtimeMs"`
	RunCount     int64 `json:"runCount"`
	DaysWithData int   `json:"daysWithData"`
}

// DailyStats is the simple day-bucketed rollup report.
type DailyStats struct {
	WindowDays  int                     `json:"windowDays"`
	GeneratedAt int64                   `json:"generatedAt"`
	Totals      DailyStatsTotals        `json:"totals"`
	Daily       []DailyEntry            `json:"daily"`
	Agents      map[string]*AgentTotals `json:"agents"`
}

// DashboardTotals sums the dashboard window.
type DashboardTotals struct {
	RunCount    int64 `json:"runCount"`
	RuntimeMs   int64 `json:"runtimeMs"`
	AgentCount  int   `json:"agentCount"`
	TotalTokens int64 `json:"totalTokens"`
}

// DatedRuntime is one point of the runtime trend.
type DatedRuntime struct {
	Date      string `json:"date"`
	RuntimeMs int64  `json:"runtimeMs"`
}

// DatedCount is one point of the runs trend.
type DatedCount struct {
	Date     string `json:"date"`
	RunCount int64  `json:"runCount"`
}

// TokenTrendEntry is one point of the token usage trend. RunsWithTokens
// counts the runs that contributed any token data that day.
type TokenTrendEntry struct {
	Date           string `json:"date"`
	TotalTokens    int64  `json:"totalTokens"`
	RunsWithTokens int64  `json:"runsWithTokens"`
}

// AgentSlice is one agent's share of a single day.
type AgentSlice struct {
	AgentID   string `json:"agentId"`
	RuntimeMs int64  `json:"runtimeMs"`
	RunCount  int64  `json:"runCount"`
}

// AgentSplitEntry is one day of the per-agent runtime split.
type AgentSplitEntry struct {
	Date   string       `json:"date"`
	Agents []AgentSlice `json:"agents"`
}

// AgentRanking is one row of the top-agents breakdown.
type AgentRanking struct {
	AgentID      string `json:"agentId"`
	RuntimeMs    int64  `json:"runtimeMs"`
	RunCount     int64  `json:"runCount"`
	AvgRuntimeMs int64  `json:"avgRuntimeMs"`
}

// DashboardSeries holds the per-day series of the dashboard report. Every
// series spans the full window; days without runs are zero-filled.
type DashboardSeries struct {
	RuntimeTrend        []DatedRuntime    `json:"runtimeTrend"`
	RuntimeSplitByAgent []AgentSplitEntry `json:"runtimeSplitByAgent"`
	RunsTrend           []DatedCount      `json:"runsTrend"`
	TokenTrend          []TokenTrendEntry `json:"tokenTrend"`
}

// DashboardBreakdowns holds the window-wide breakdowns of the dashboard
// report.
type DashboardBreakdowns struct {
	TopAgentsByRuntime []AgentRanking   `json:"topAgentsByRuntime"`
	StatusDistribution map[string]int64 `json:"statusDistribution"`
	AvgRuntimeByAgent  map[string]int64 `json:"avgRuntimeByAgent"`
}

// Dashboard is the rich aggregate report backing the reporting UI.
type Dashboard struct {
	WindowDays  int                 `json:"windowDays"`
	GeneratedAt int64               `json:"generatedAt"`
	Totals      DashboardTotals     `json:"totals"`
	Series      DashboardSeries     `json:"series"`
	Breakdowns  DashboardBreakdowns `json:"breakdowns"`
	AgentIDs    []string            `json:"agentIds"`
}
