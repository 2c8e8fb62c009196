package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xiaot623/agentmon/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func int64p(n int64) *int64 { return &n }

func testRow(runID string, startedAt int64) *domain.HistoryRow {
	return &domain.HistoryRow{
		RunID:         runID,
		Label:         "build",
		AgentID:       "dev",
		Model:         "m1",
		Status:        domain.RunStatusDone,
		StartedAt:     startedAt,
		EndedAt:       int64p(startedAt + 4000),
		RuntimeMs:     4000,
		Task:          "compile the thing",
		SessionKey:    "agent:dev:subagent:abc",
		OutcomeStatus: "ok",
		OutcomeJSON:   `{"status":"ok"}`,
		RawJSON:       `{}`,
		CreatedAt:     startedAt,
		UpdatedAt:     startedAt + 5000,
	}
}

func upsert(t *testing.T, s *SQLiteStore, row *domain.HistoryRow) {
	t.Helper()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertRun(ctx, row)
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	row := testRow("r1", 1000)
	upsert(t, s, row)

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Status != domain.RunStatusDone || got.CreatedAt != 1000 {
		t.Fatalf("unexpected row: %+v", got)
	}

	// Conflict path: every derived field overwritten, created_at untouched.
	updated := testRow("r1", 1000)
	updated.Status = domain.RunStatusFailed
	updated.CreatedAt = 9999
	updated.UpdatedAt = 7000
	updated.TotalTokens = int64p(55)
	upsert(t, s, updated)

	got, err = s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("status not overwritten: %+v", got)
	}
	if got.CreatedAt != 1000 {
		t.Fatalf("created_at must not change on conflict, got %d", got.CreatedAt)
	}
	if got.UpdatedAt != 7000 {
		t.Fatalf("updated_at not bumped, got %d", got.UpdatedAt)
	}
	if got.TotalTokens == nil || *got.TotalTokens != 55 {
		t.Fatalf("total_tokens not stored: %+v", got.TotalTokens)
	}
}

func TestGetRunUnknown(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown run, got %+v", got)
	}
}

func TestListRunsOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	upsert(t, s, testRow("r1", 1000))
	upsert(t, s, testRow("r2", 3000))
	upsert(t, s, testRow("r3", 2000))

	rows, total, err := s.ListRuns(ctx, 2, 0, "", "")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].RunID != "r2" || rows[1].RunID != "r3" {
		t.Fatalf("unexpected page: %+v", rows)
	}

	rows, _, err = s.ListRuns(ctx, 2, 2, "", "")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RunID != "r1" {
		t.Fatalf("unexpected second page: %+v", rows)
	}
}

func TestListRunsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := testRow("r1", 1000)
	b := testRow("r2", 2000)
	b.AgentID = "ops"
	b.Status = domain.RunStatusRunning
	upsert(t, s, a)
	upsert(t, s, b)

	rows, total, err := s.ListRuns(ctx, 10, 0, "ops", "")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].RunID != "r2" {
		t.Fatalf("agent filter wrong: total=%d rows=%+v", total, rows)
	}

	rows, total, err = s.ListRuns(ctx, 10, 0, "ops", "running")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("combined filter wrong: total=%d", total)
	}

	_, total, err = s.ListRuns(ctx, 10, 0, "dev", "running")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no matches, got %d", total)
	}
}

func TestListRunsSince(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	upsert(t, s, testRow("old", 1000))
	upsert(t, s, testRow("new", 5000))

	rows, err := s.ListRunsSince(ctx, 2000, "", "")
	if err != nil {
		t.Fatalf("ListRunsSince failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RunID != "new" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestPruneBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// ended_at wins, then started_at, then created_at.
	stale := testRow("stale", 1000)
	stale.EndedAt = int64p(4999)
	fresh := testRow("fresh", 1000)
	fresh.EndedAt = int64p(5000)
	neverStarted := testRow("never", 0)
	neverStarted.StartedAt = 0
	neverStarted.EndedAt = nil
	neverStarted.CreatedAt = 9000
	upsert(t, s, stale)
	upsert(t, s, fresh)
	upsert(t, s, neverStarted)

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.PruneBefore(ctx, 5000)
	})
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	if got, _ := s.GetRun(ctx, "stale"); got != nil {
		t.Fatalf("stale row should be pruned")
	}
	if got, _ := s.GetRun(ctx, "fresh"); got == nil {
		t.Fatalf("fresh row should be retained")
	}
	if got, _ := s.GetRun(ctx, "never"); got == nil {
		t.Fatalf("row with only created_at should use created_at")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	errBoom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertRun(ctx, testRow("r1", 1000)); err != nil {
			return err
		}
		return errBoom
	})
	if err == nil {
		t.Fatalf("expected error from transaction")
	}
	if got, _ := s.GetRun(ctx, "r1"); got != nil {
		t.Fatalf("upsert should have rolled back, got %+v", got)
	}
}

func TestMigrateIdempotentAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	upsert(t, first, testRow("r1", 1000))
	first.Close()

	// Reopening replays the migrations, including the ensure-column steps.
	second, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer second.Close()

	got, err := second.GetRun(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.RunID != "r1" {
		t.Fatalf("row lost across reopen: %+v", got)
	}
}

func TestSchemaUpgradeFromLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	legacy, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	// Simulate a database created before the token columns existed.
	for _, col := range []string{"input_tokens", "output_tokens", "total_tokens", "last_heartbeat_at"} {
		if _, err := legacy.db.Exec("ALTER TABLE run_history DROP COLUMN " + col); err != nil {
			t.Fatalf("drop column %s: %v", col, err)
		}
	}
	legacy.Close()

	upgraded, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer upgraded.Close()

	row := testRow("r1", 1000)
	row.InputTokens = int64p(5)
	upsert(t, upgraded, row)

	got, err := upgraded.GetRun(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.InputTokens == nil || *got.InputTokens != 5 {
		t.Fatalf("token column not added on upgrade: %+v", got.InputTokens)
	}
}
