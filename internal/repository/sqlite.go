// Package store persists the run history table in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/agentmon/internal/domain"
)

// SQLiteStore implements the run history store using SQLite. The monitor
// is the only writer; one transaction per reconciliation pass is enough.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and brings the schema up
// to date.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations. Safe to call on every startup: the
// base DDL is IF NOT EXISTS and later columns are added only when missing.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS run_history (
			run_id TEXT PRIMARY KEY,
			label TEXT,
			agent_id TEXT,
			model TEXT,
			status TEXT,
			started_at INTEGER,
			ended_at INTEGER,
			runtime_ms INTEGER,
			timeout_seconds INTEGER,
			task TEXT,
			session_key TEXT,
			outcome_status TEXT,
			outcome_json TEXT,
			raw_json TEXT,
			created_at INTEGER,
			updated_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_started ON run_history(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_agent_status ON run_history(agent_id, status)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first release (SQLite has limited ALTER
	// TABLE support, so each is applied only when absent).
	laterColumns := []struct {
		name string
		ddl  string
	}{
		{"input_tokens", "ALTER TABLE run_history ADD COLUMN input_tokens INTEGER"},
		{"output_tokens", "ALTER TABLE run_history ADD COLUMN output_tokens INTEGER"},
		{"total_tokens", "ALTER TABLE run_history ADD COLUMN total_tokens INTEGER"},
		{"last_heartbeat_at", "ALTER TABLE run_history ADD COLUMN last_heartbeat_at INTEGER"},
	}
	for _, col := range laterColumns {
		if err := s.ensureColumn("run_history", col.name, col.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tx wraps one reconciliation pass. All upserts and the prune commit
// together or not at all.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpsertRun inserts the row or overwrites every derived field on conflict.
// created_at is written once and never touched afterward.
func (t *Tx) UpsertRun(ctx context.Context, row *domain.HistoryRow) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO run_history (
			run_id, label, agent_id, model, status, started_at, ended_at,
			runtime_ms, timeout_seconds, task, session_key, outcome_status,
			outcome_json, raw_json, input_tokens, output_tokens, total_tokens,
			last_heartbeat_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			label=excluded.label,
			agent_id=excluded.agent_id,
			model=excluded.model,
			status=excluded.status,
			started_at=excluded.started_at,
			ended_at=excluded.ended_at,
			runtime_ms=excluded.runtime_ms,
			timeout_seconds=excluded.timeout_seconds,
			task=excluded.task,
			session_key=excluded.session_key,
			outcome_status=excluded.outcome_status,
			outcome_json=excluded.outcome_json,
			raw_json=excluded.raw_json,
			input_tokens=excluded.input_tokens,
			output_tokens=excluded.output_tokens,
			total_tokens=excluded.total_tokens,
			last_heartbeat_at=excluded.last_heartbeat_at,
			updated_at=excluded.updated_at`,
		row.RunID, row.Label, row.AgentID, row.Model, string(row.Status),
		nullableMs(row.StartedAt), nullInt64(row.EndedAt), row.RuntimeMs,
		nullInt64(row.TimeoutSeconds), row.Task, row.SessionKey,
		row.OutcomeStatus, row.OutcomeJSON, row.RawJSON,
		nullInt64(row.InputTokens), nullInt64(row.OutputTokens),
		nullInt64(row.TotalTokens), nullInt64(row.LastHeartbeatAt),
		row.CreatedAt, row.UpdatedAt)
	return err
}

// PruneBefore deletes rows whose most-recent-known timestamp is older than
// the cutoff.
func (t *Tx) PruneBefore(ctx context.Context, cutoffMs int64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM run_history WHERE COALESCE(ended_at, started_at, created_at, 0) < ?`,
		cutoffMs)
	return err
}

const historyColumns = `run_id, label, agent_id, model, status, started_at, ended_at,
	runtime_ms, timeout_seconds, task, session_key, outcome_status,
	outcome_json, raw_json, input_tokens, output_tokens, total_tokens,
	last_heartbeat_at, created_at, updated_at`

// ListRuns returns one page ordered by start time descending, plus the
// total row count for the same filters.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int, agentID, status string) ([]domain.HistoryRow, int, error) {
	var where []string
	var args []interface{}
	if agentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, agentID)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM run_history %s", whereSQL), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM run_history %s ORDER BY started_at DESC LIMIT ? OFFSET ?",
		historyColumns, whereSQL)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListRunsSince returns every row whose start time falls inside the
// aggregation window, with optional equality filters.
func (s *SQLiteStore) ListRunsSince(ctx context.Context, sinceMs int64, agentID, status string) ([]domain.HistoryRow, error) {
	where := []string{"started_at >= ?"}
	args := []interface{}{sinceMs}
	if agentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, agentID)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM run_history WHERE %s ORDER BY started_at ASC",
		historyColumns, strings.Join(where, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// GetRun retrieves a row by run id. Returns nil when the run is unknown.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.HistoryRow, error) {
	query := fmt.Sprintf("SELECT %s FROM run_history WHERE run_id = ?", historyColumns)
	row, err := scanRow(s.db.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRow(sc scannable) (*domain.HistoryRow, error) {
	var row domain.HistoryRow
	var status sql.NullString
	var label, agentID, model, task, sessionKey, outcomeStatus, outcomeJSON, rawJSON sql.NullString
	var startedAt, endedAt, runtimeMs, timeoutSeconds sql.NullInt64
	var inputTokens, outputTokens, totalTokens, lastHeartbeatAt sql.NullInt64
	var createdAt, updatedAt sql.NullInt64

	if err := sc.Scan(&row.RunID, &label, &agentID, &model, &status,
		&startedAt, &endedAt, &runtimeMs, &timeoutSeconds, &task,
		&sessionKey, &outcomeStatus, &outcomeJSON, &rawJSON,
		&inputTokens, &outputTokens, &totalTokens, &lastHeartbeatAt,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	row.Label = label.String
	row.AgentID = agentID.String
	row.Model = model.String
	row.Status = domain.RunStatus(status.String)
	row.StartedAt = startedAt.Int64
	row.EndedAt = int64Ptr(endedAt)
	row.RuntimeMs = runtimeMs.Int64
	row.TimeoutSeconds = int64Ptr(timeoutSeconds)
	row.Task = task.String
	row.SessionKey = sessionKey.String
	row.OutcomeStatus = outcomeStatus.String
	row.OutcomeJSON = outcomeJSON.String
	row.RawJSON = rawJSON.String
	row.InputTokens = int64Ptr(inputTokens)
	row.OutputTokens = int64Ptr(outputTokens)
	row.TotalTokens = int64Ptr(totalTokens)
	row.LastHeartbeatAt = int64Ptr(lastHeartbeatAt)
	row.CreatedAt = createdAt.Int64
	row.UpdatedAt = updatedAt.Int64
	return &row, nil
}

func scanRows(rows *sql.Rows) ([]domain.HistoryRow, error) {
	var out []domain.HistoryRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// nullableMs stores an unknown timestamp as NULL so the retention
// COALESCE falls through to the next known timestamp.
func nullableMs(v int64) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
