package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"docwatch/internal/run"
)

// MemoryDSN opens a throwaway in-memory database.
const MemoryDSN = ":memory:"

// ErrNotFound reports a run id that is not in the history.
var ErrNotFound = errors.New("history: run not found")

// Entry is one stored run.
type Entry struct {
	RunID          string          `json:"run_id"`
	RequestID      string          `json:"request_id,omitempty"`
	FileName       string          `json:"file_name"`
	DecisionStatus string          `json:"decision_status"`
	NeedsRewrite   bool            `json:"needs_rewrite"`
	IssueCount     int             `json:"issue_count"`
	ErrorCount     int             `json:"error_count"`
	WarnCount      int             `json:"warn_count"`
	FallbackUsed   bool            `json:"fallback_used"`
	DurationMS     int64           `json:"duration_ms"`
	Summary        json.RawMessage `json:"summary"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Store persists run summaries in DuckDB.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database at path and applies the
// schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Store{db: db, logger: logger.With("component", "history")}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSummary stores the summary of a successful run.
func (s *Store) RecordSummary(ctx context.Context, summary run.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("history: encode summary: %w", err)
	}
	counts := summary.SeverityCounts()
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (
  run_id, request_id, file_name, decision_status, needs_rewrite,
  issue_count, error_count, warn_count, fallback_used, duration_ms, summary, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		nullString(summary.RequestID),
		summary.FileName,
		summary.Decision.Status,
		summary.Decision.NeedsRewrite,
		len(summary.Issues),
		counts["error"],
		counts["warn"],
		summary.FallbackUsed,
		summary.DurationMS,
		string(data),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	s.logger.Debug("run recorded", "run_id", summary.RunID, "request_id", summary.RequestID)
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := selectEntries + ` ORDER BY created_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return out, nil
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE run_id = ?`, runID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return entry, err
}

const selectEntries = `
SELECT run_id, request_id, file_name, decision_status, needs_rewrite,
  issue_count, error_count, warn_count, fallback_used, duration_ms,
  CAST(summary AS VARCHAR), created_at
FROM runs`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row of selectEntries.
func scanEntry(row scanner) (Entry, error) {
	var (
		entry     Entry
		requestID sql.NullString
		summary   string
	)
	err := row.Scan(
		&entry.RunID,
		&requestID,
		&entry.FileName,
		&entry.DecisionStatus,
		&entry.NeedsRewrite,
		&entry.IssueCount,
		&entry.ErrorCount,
		&entry.WarnCount,
		&entry.FallbackUsed,
		&entry.DurationMS,
		&summary,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("history: scan run: %w", err)
	}
	entry.RequestID = requestID.String
	entry.Summary = json.RawMessage(summary)
	return entry, nil
}

// nullString stores empty strings as NULL.
func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
