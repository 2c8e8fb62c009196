package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/xiaot623/agentmon/internal/domain"
)

const (
	maxWindowDays = 180
	topAgentCount = 8
	dayFormat     = "2006-01-02"
)

// DailyStats aggregates the window into per-day and per-agent totals.
// Every calendar day in the window appears, zero-filled when no runs
// started that day.
func (s *Service) DailyStats(ctx context.Context, days int) (*domain.DailyStats, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	days = clampDays(days)

	now := s.now()
	nowMs := now.UnixMilli()
	windowStart := startOfDay(now).AddDate(0, 0, -(days - 1))
	labels := dayLabels(windowStart, days)

	rows, err := s.store.ListRunsSince(ctx, windowStart.UnixMilli(), "", "")
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	daily := make(map[string]*domain.DailyEntry, days)
	for _, label := range labels {
		daily[label] = &domain.DailyEntry{Date: label, Agents: map[string]*domain.AgentTotals{}}
	}
	agents := map[string]*domain.AgentTotals{}
	stats := &domain.DailyStats{
		WindowDays:  days,
		GeneratedAt: nowMs,
		Agents:      agents,
	}

	for i := range rows {
		row := &rows[i]
		entry, ok := daily[dayOf(row.StartedAt)]
		if !ok {
			continue
		}
		runtime := effectiveRuntime(row, nowMs)
		agentID := agentOf(row)

		entry.RuntimeMs += runtime
		entry.RunCount++
		bump(entry.Agents, agentID, runtime)
		bump(agents, agentID, runtime)
		stats.Totals.RuntimeMs += runtime
		stats.Totals.RunCount++
	}

	stats.Daily = make([]domain.DailyEntry, 0, days)
	for _, label := range labels {
		entry := daily[label]
		if entry.RunCount > 0 {
			stats.Totals.DaysWithData++
		}
		stats.Daily = append(stats.Daily, *entry)
	}
	return stats, nil
}

// Dashboard computes the rich aggregate report: per-day series, status
// distribution, token trend, and agent rankings over the window.
func (s *Service) Dashboard(ctx context.Context, days int, agentID, status string) (*domain.Dashboard, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}
	days = clampDays(days)

	now := s.now()
	nowMs := now.UnixMilli()
	windowStart := startOfDay(now).AddDate(0, 0, -(days - 1))
	labels := dayLabels(windowStart, days)

	rows, err := s.store.ListRunsSince(ctx, windowStart.UnixMilli(), agentID, status)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	type dayAccum struct {
		runtime   int64
		runs      int64
		tokens    int64
		tokenRuns int64
		agents    map[string]*domain.AgentTotals
	}
	byDay := make(map[string]*dayAccum, days)
	for _, label := range labels {
		byDay[label] = &dayAccum{agents: map[string]*domain.AgentTotals{}}
	}

	agentTotals := map[string]*domain.AgentTotals{}
	statusDist := map[string]int64{
		string(domain.RunStatusRunning): 0,
		string(domain.RunStatusDone):    0,
		string(domain.RunStatusFailed):  0,
		string(domain.RunStatusTimeout): 0,
	}
	report := &domain.Dashboard{
		WindowDays:  days,
		GeneratedAt: nowMs,
	}

	for i := range rows {
		row := &rows[i]
		day, ok := byDay[dayOf(row.StartedAt)]
		if !ok {
			continue
		}
		runtime := effectiveRuntime(row, nowMs)
		aid := agentOf(row)

		day.runtime += runtime
		day.runs++
		bump(day.agents, aid, runtime)
		bump(agentTotals, aid, runtime)

		st := string(row.Status)
		if st == "" {
			st = string(domain.RunStatusUnknown)
		}
		statusDist[st]++

		if tokens, ok := rowTokens(row); ok {
			day.tokens += tokens
			day.tokenRuns++
			report.Totals.TotalTokens += tokens
		}

		report.Totals.RunCount++
		report.Totals.RuntimeMs += runtime
	}

	for _, label := range labels {
		day := byDay[label]
		report.Series.RuntimeTrend = append(report.Series.RuntimeTrend,
			domain.DatedRuntime{Date: label, RuntimeMs: day.runtime})
		report.Series.RunsTrend = append(report.Series.RunsTrend,
			domain.DatedCount{Date: label, RunCount: day.runs})
		report.Series.TokenTrend = append(report.Series.TokenTrend,
			domain.TokenTrendEntry{Date: label, TotalTokens: day.tokens, RunsWithTokens: day.tokenRuns})
		report.Series.RuntimeSplitByAgent = append(report.Series.RuntimeSplitByAgent,
			domain.AgentSplitEntry{Date: label, Agents: agentSlices(day.agents)})
	}

	report.AgentIDs = lo.Keys(agentTotals)
	sort.Strings(report.AgentIDs)
	report.Totals.AgentCount = len(report.AgentIDs)

	rankings := lo.MapToSlice(agentTotals, func(aid string, t *domain.AgentTotals) domain.AgentRanking {
		return domain.AgentRanking{
			AgentID:      aid,
			RuntimeMs:    t.RuntimeMs,
			RunCount:     t.RunCount,
			AvgRuntimeMs: avgRuntime(t),
		}
	})
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].RuntimeMs != rankings[j].RuntimeMs {
			return rankings[i].RuntimeMs > rankings[j].RuntimeMs
		}
		return rankings[i].AgentID < rankings[j].AgentID
	})
	if len(rankings) > topAgentCount {
		rankings = rankings[:topAgentCount]
	}

	report.Breakdowns = domain.DashboardBreakdowns{
		TopAgentsByRuntime: rankings,
		StatusDistribution: statusDist,
		AvgRuntimeByAgent: lo.MapValues(agentTotals, func(t *domain.AgentTotals, _ string) int64 {
			return avgRuntime(t)
		}),
	}
	return report, nil
}

func clampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayLabels(windowStart time.Time, days int) []string {
	labels := make([]string, days)
	for i := 0; i < days; i++ {
		labels[i] = windowStart.AddDate(0, 0, i).Format(dayFormat)
	}
	return labels
}

// dayOf buckets a start timestamp into its local calendar day.
func dayOf(startedAtMs int64) string {
	return time.UnixMilli(startedAtMs).Format(dayFormat)
}

// effectiveRuntime recomputes a running row's runtime as of now rather
// than trusting the stored value.
func effectiveRuntime(row *domain.HistoryRow, nowMs int64) int64 {
	if row.Status == domain.RunStatusRunning && row.StartedAt > 0 {
		return nowMs - row.StartedAt
	}
	return row.RuntimeMs
}

// rowTokens resolves a row's token contribution: total when stored,
// otherwise the sum of whichever of input/output is known.
func rowTokens(row *domain.HistoryRow) (int64, bool) {
	if row.TotalTokens != nil {
		return *row.TotalTokens, true
	}
	if row.InputTokens == nil && row.OutputTokens == nil {
		return 0, false
	}
	var sum int64
	if row.InputTokens != nil {
		sum += *row.InputTokens
	}
	if row.OutputTokens != nil {
		sum += *row.OutputTokens
	}
	return sum, true
}

func agentOf(row *domain.HistoryRow) string {
	if row.AgentID == "" {
		return "unknown"
	}
	return row.AgentID
}

func bump(m map[string]*domain.AgentTotals, agentID string, runtime int64) {
	t, ok := m[agentID]
	if !ok {
		t = &domain.AgentTotals{}
		m[agentID] = t
	}
	t.RuntimeMs += runtime
	t.RunCount++
}

// avgRuntime is integer division with an explicit zero guard.
func avgRuntime(t *domain.AgentTotals) int64 {
	if t.RunCount == 0 {
		return 0
	}
	return t.RuntimeMs / t.RunCount
}

func agentSlices(m map[string]*domain.AgentTotals) []domain.AgentSlice {
	slices := lo.MapToSlice(m, func(aid string, t *domain.AgentTotals) domain.AgentSlice {
		return domain.AgentSlice{AgentID: aid, RuntimeMs: t.RuntimeMs, RunCount: t.RunCount}
	})
	sort.Slice(slices, func(i, j int) bool { return slices[i].AgentID < slices[j].AgentID })
	return slices
}
