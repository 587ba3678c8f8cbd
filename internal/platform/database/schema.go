package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS learner_progress (
		learner_id  TEXT NOT NULL,
		module_slug TEXT NOT NULL,
		status      TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (learner_id, module_slug)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_events (
		id          BIGSERIAL PRIMARY KEY,
		session_id  TEXT NOT NULL,
		learner_id  TEXT NOT NULL,
		module_slug TEXT NOT NULL DEFAULT '',
		event_type  TEXT NOT NULL,
		data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_events_session_idx ON quiz_events (session_id)`,
	`CREATE TABLE IF NOT EXISTS content_tiers (
		level INT PRIMARY KEY,
		doc   JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_modules (
		slug       TEXT PRIMARY KEY,
		short_slug TEXT NOT NULL DEFAULT '',
		doc        JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_lessons (
		module_slug  TEXT NOT NULL REFERENCES content_modules (slug) ON DELETE CASCADE,
		lesson_order INT NOT NULL,
		doc          JSONB NOT NULL,
		PRIMARY KEY (module_slug, lesson_order)
	)`,
	`CREATE TABLE IF NOT EXISTS content_questions (
		module_slug TEXT NOT NULL REFERENCES content_modules (slug) ON DELETE CASCADE,
		position    INT NOT NULL,
		doc         JSONB NOT NULL,
		PRIMARY KEY (module_slug, position)
	)`,
}

// EnsureSchema creates the tables used by the progress store, the quiz event
// log and the PostgreSQL content provider.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	slog.Debug("database schema ensured", "statements", len(schema))
	return nil
}
