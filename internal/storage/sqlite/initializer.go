// Package sqlite initialises the application database that stores
// conversations and user feedback for the FAQ assistant.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/logger"
)

const dropSchema = `
DROP TABLE IF EXISTS feedback;
DROP TABLE IF EXISTS conversations;
`

const createSchema = `
CREATE TABLE conversations (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	course TEXT NOT NULL,
	model_used TEXT NOT NULL,
	response_time REAL NOT NULL,
	relevance TEXT NOT NULL,
	relevance_explanation TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	eval_prompt_tokens INTEGER NOT NULL,
	eval_completion_tokens INTEGER NOT NULL,
	eval_total_tokens INTEGER NOT NULL,
	openai_cost REAL NOT NULL,
	timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_conversations_timestamp ON conversations(timestamp);

CREATE TABLE feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	feedback INTEGER NOT NULL,
	timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_feedback_conversation_id ON feedback(conversation_id);
`

// Initializer recreates the application database schema.
type Initializer struct {
	path string
}

// New creates an initializer for the SQLite file at path.
func New(path string) *Initializer {
	return &Initializer{path: path}
}

// Path returns the database file location.
func (i *Initializer) Path() string { return i.path }

// Init drops and recreates the conversations and feedback tables.
// Existing rows are discarded. Failures are domain.ErrDatabaseInit.
func (i *Initializer) Init(ctx context.Context) error {
	if err := i.init(ctx); err != nil {
		return domain.NewStageError(domain.ErrDatabaseInit, err)
	}
	logger.FromContext(ctx).Info("Database initialised", zap.String("path", i.path))
	return nil
}

func (i *Initializer) init(ctx context.Context) error {
	if i.path == "" {
		return fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(i.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", i.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
