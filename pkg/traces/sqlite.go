package traces

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists traces in SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	sink, err := NewSQLiteSink(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewSQLiteSink creates a SQLite-backed sink and ensures schema.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureTraceSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, trace OrchestrationTrace) error {
	payload, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orchestration_traces (
			run_id, conversation_id, source, duration_ms, trace_json, started_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		trace.RunID,
		trace.ConversationID,
		string(trace.Source),
		trace.DurationMs,
		string(payload),
		trace.StartedAt.UTC(),
	)
	return err
}

// Recent returns up to limit of the newest stored traces, oldest first.
// An empty conversationID reads across all conversations.
func (s *SQLiteSink) Recent(ctx context.Context, conversationID string, limit int) ([]OrchestrationTrace, error) {
	query := `SELECT trace_json FROM orchestration_traces`
	var args []any
	if conversationID != "" {
		query += ` WHERE conversation_id = ?`
		args = append(args, conversationID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrchestrationTrace
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var trace OrchestrationTrace
		if err := json.Unmarshal([]byte(payload), &trace); err != nil {
			continue
		}
		out = append(out, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune deletes traces that started before cutoff.
func (s *SQLiteSink) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orchestration_traces WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func ensureTraceSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS orchestration_traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			conversation_id TEXT,
			source TEXT NOT NULL,
			duration_ms INTEGER,
			trace_json TEXT NOT NULL,
			started_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_traces_conversation ON orchestration_traces(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_traces_started ON orchestration_traces(started_at);
	`)
	return err
}
