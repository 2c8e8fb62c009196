package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/xiaot623/agentmon/internal/domain"
	store "github.com/xiaot623/agentmon/internal/repository"
	"github.com/xiaot623/agentmon/internal/sanitize"
	"github.com/xiaot623/agentmon/internal/sessionindex"
	"github.com/xiaot623/agentmon/internal/snapshot"
	"github.com/xiaot623/agentmon/internal/tokenusage"
)

// Aliases accepted for the liveness timestamp of a still-running task.
var heartbeatKeys = []string{"lastHeartbeatAt", "last_heartbeat_at", "lastHeartbeat", "heartbeatAt", "heartbeat_at"}

// Reconcile merges the current external snapshot into the history table
// and prunes expired rows, all in one transaction. Called synchronously
// before every read; a missing or malformed snapshot reads as empty.
func (s *Service) Reconcile(ctx context.Context) error {
	s.sessions.Invalidate()

	runs := snapshot.Load(s.config.RunsFile())
	if len(runs) == 0 {
		return nil
	}

	passID := uuid.New().String()[:8]
	nowMs := s.now().UnixMilli()

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		for runID, run := range runs {
			if err := tx.UpsertRun(ctx, s.buildRow(runID, run, nowMs)); err != nil {
				return fmt.Errorf("upsert run %s: %w", runID, err)
			}
		}
		if s.config.RetentionDays > 0 {
			cutoff := nowMs - int64(s.config.RetentionDays)*24*60*60*1000
			if err := tx.PruneBefore(ctx, cutoff); err != nil {
				return fmt.Errorf("prune: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR: reconcile pass %s failed: %v", passID, err)
		return err
	}
	return nil
}

// buildRow derives one history row from a snapshot run record.
func (s *Service) buildRow(runID string, run snapshot.RunRecord, nowMs int64) *domain.HistoryRow {
	outcome := run.Object("outcome")
	status, outcomeStatus := deriveStatus(run, outcome)
	if outcome == nil {
		outcome = map[string]any{}
	}

	started, _ := run.Count("startedAt", "createdAt")
	var endedPtr *int64
	if ended, ok := run.Count("endedAt"); ok && ended > 0 {
		endedPtr = &ended
	}

	var runtime int64
	switch {
	case endedPtr != nil && started > 0:
		runtime = *endedPtr - started
	case status == domain.RunStatusRunning && started > 0:
		runtime = nowMs - started
	}

	sessionKey := run.Str("childSessionKey")
	agentID := sessionindex.AgentIDFromSessionKey(sessionKey)

	usage := tokenusage.Resolve(map[string]any(run), outcome)
	if usage.Empty() {
		if entry, ok := s.sessions.Lookup(agentID, sessionKey); ok {
			usage = tokenusage.ResolveEntry(map[string]any(entry))
		}
	}

	var heartbeat *int64
	if hb, ok := run.Count(heartbeatKeys...); ok {
		heartbeat = &hb
	}

	var timeoutSeconds *int64
	if t, ok := run.Count("runTimeoutSeconds"); ok {
		timeoutSeconds = &t
	}

	created, ok := run.Count("createdAt")
	if !ok {
		if started > 0 {
			created = started
		} else {
			created = nowMs
		}
	}

	outcomeJSON, _ := json.Marshal(outcome)
	rawJSON, _ := json.Marshal(run)

	return &domain.HistoryRow{
		RunID:           runID,
		Label:           run.Str("label"),
		AgentID:         agentID,
		Model:           run.Str("model"),
		Status:          status,
		StartedAt:       started,
		EndedAt:         endedPtr,
		RuntimeMs:       runtime,
		TimeoutSeconds:  timeoutSeconds,
		Task:            sanitize.Clean(run.Str("task")),
		SessionKey:      sessionKey,
		OutcomeStatus:   outcomeStatus,
		OutcomeJSON:     string(outcomeJSON),
		RawJSON:         string(rawJSON),
		InputTokens:     usage.Input,
		OutputTokens:    usage.Output,
		TotalTokens:     usage.Total,
		LastHeartbeatAt: heartbeat,
		CreatedAt:       created,
		UpdatedAt:       nowMs,
	}
}

// deriveStatus applies the fixed decision order: terminal outcome statuses
// first, then ended-without-status, then started-without-ended. The raw
// outcome status string is retained separately from the derived status.
func deriveStatus(run snapshot.RunRecord, outcome map[string]any) (domain.RunStatus, string) {
	outcomeStatus := ""
	if outcome != nil {
		if st, ok := outcome["status"].(string); ok {
			outcomeStatus = st
		}
	}

	switch outcomeStatus {
	case "ok", "done":
		return domain.RunStatusDone, outcomeStatus
	case "timeout":
		return domain.RunStatusTimeout, outcomeStatus
	case "error":
		return domain.RunStatusFailed, outcomeStatus
	}

	ended, endedOK := run.Count("endedAt")
	started, startedOK := run.Count("startedAt")
	hasEnded := endedOK && ended > 0
	hasStarted := startedOK && started > 0

	if hasEnded && outcomeStatus == "" {
		return domain.RunStatusDone, outcomeStatus
	}
	if hasStarted && !hasEnded {
		return domain.RunStatusRunning, outcomeStatus
	}
	return domain.RunStatusUnknown, outcomeStatus
}
