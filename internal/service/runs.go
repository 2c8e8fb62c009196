package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/agentmon/internal/domain"
	"github.com/xiaot623/agentmon/internal/transcript"
)

// ListRuns returns a page of run history ordered by start time descending,
// after reconciling the latest snapshot.
func (s *Service) ListRuns(ctx context.Context, q domain.RunsQuery) (*domain.RunsPage, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}

	rows, total, err := s.store.ListRuns(ctx, q.Limit, q.Offset, q.AgentID, q.Status)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	nowMs := s.now().UnixMilli()
	items := make([]domain.Run, 0, len(rows))
	for i := range rows {
		items = append(items, runFromRow(&rows[i], nowMs))
	}
	return &domain.RunsPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// GetRunDetail returns a single run with transcript excerpts joined in via
// the session key. Returns nil when the run id is unknown. A run whose
// transcript cannot be located still resolves, with no messages.
func (s *Service) GetRunDetail(ctx context.Context, runID string) (*domain.RunDetail, error) {
	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}

	row, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if row == nil {
		return nil, nil
	}

	run := runFromRow(row, s.now().UnixMilli())

	outcome := map[string]any{}
	if err := json.Unmarshal([]byte(row.OutcomeJSON), &outcome); err != nil || outcome == nil {
		outcome = map[string]any{"status": run.Outcome.Status}
	}

	messages := []domain.TranscriptMessage{}
	if path := s.sessions.TranscriptPath(row.SessionKey); path != "" {
		if extracted := transcript.Extract(path); extracted != nil {
			messages = extracted
		}
	}

	return &domain.RunDetail{Run: run, Outcome: outcome, Messages: messages}, nil
}

// runFromRow maps a stored row to its API shape. For running rows the
// runtime is always "as of now", not as of the last reconciliation.
func runFromRow(row *domain.HistoryRow, nowMs int64) domain.Run {
	runtime := row.RuntimeMs
	if row.Status == domain.RunStatusRunning && row.StartedAt > 0 {
		runtime = nowMs - row.StartedAt
	}

	agentID := row.AgentID
	if agentID == "" {
		agentID = "unknown"
	}
	status := row.Status
	if status == "" {
		status = domain.RunStatusUnknown
	}
	outcomeStatus := row.OutcomeStatus
	if outcomeStatus == "" {
		outcomeStatus = "unknown"
	}

	return domain.Run{
		RunID:           row.RunID,
		Label:           row.Label,
		AgentID:         agentID,
		Model:           row.Model,
		Status:          status,
		StartedAt:       row.StartedAt,
		EndedAt:         row.EndedAt,
		RuntimeMs:       runtime,
		TimeoutSeconds:  row.TimeoutSeconds,
		Task:            row.Task,
		SessionKey:      row.SessionKey,
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		TotalTokens:     row.TotalTokens,
		LastHeartbeatAt: row.LastHeartbeatAt,
		Outcome:         domain.Outcome{Status: outcomeStatus},
	}
}
