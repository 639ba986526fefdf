package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL lets the API read while an import is writing
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't handle concurrent writes well
	db.SetMaxIdleConns(1)

	return &DB{db}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationUsageEvents,
		migrationQAScores,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const migrationUsageEvents = `
CREATE TABLE IF NOT EXISTS usage_events (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	external_event_id TEXT NOT NULL,
	agent_id TEXT NOT NULL DEFAULT '',
	client_name TEXT NOT NULL DEFAULT '',

	-- Billing
	call_duration_seconds INTEGER NOT NULL DEFAULT 0 CHECK (call_duration_seconds >= 0),
	call_cost REAL NOT NULL DEFAULT 0 CHECK (call_cost >= 0),
	call_started_at DATETIME NOT NULL,
	call_ended_at DATETIME NOT NULL,
	call_status TEXT NOT NULL DEFAULT 'completed',

	-- Optional references
	phone_number TEXT,
	recording_url TEXT,
	transcript TEXT,
	metadata TEXT,

	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// qa_scores deliberately has no foreign key: upstream producers may write a
// score before (or without) its event, and such orphans are filtered at join time.
const migrationQAScores = `
CREATE TABLE IF NOT EXISTS qa_scores (
	id TEXT PRIMARY KEY,
	usage_event_id TEXT NOT NULL,
	overall_score REAL NOT NULL CHECK (overall_score BETWEEN 0 AND 100),
	comprehension_score REAL NOT NULL DEFAULT 0,
	resolution_score REAL NOT NULL DEFAULT 0,
	tone_score REAL NOT NULL DEFAULT 0,
	compliance_score REAL NOT NULL DEFAULT 0,
	escalation_needed INTEGER NOT NULL DEFAULT 0,
	conversation_intent TEXT NOT NULL DEFAULT '',
	urgency_level TEXT NOT NULL DEFAULT 'low',
	risks_detected TEXT NOT NULL DEFAULT '[]',
	human_reviewed INTEGER NOT NULL DEFAULT 0,
	summary TEXT,
	ai_feedback TEXT,
	reviewer_notes TEXT,

	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_usage_events_external
ON usage_events(provider, workspace_id, external_event_id);
CREATE INDEX IF NOT EXISTS idx_usage_events_started_at ON usage_events(call_started_at);
CREATE INDEX IF NOT EXISTS idx_usage_events_client ON usage_events(client_name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_qa_scores_usage_event ON qa_scores(usage_event_id);
`
