package db

import (
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Every statement is idempotent so the whole set
// runs on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS relations (
		scope      INTEGER NOT NULL,
		kind       TEXT NOT NULL
		           CHECK(kind IN ('plan','suite','case','area','iteration','work_item')),
		source_id  INTEGER NOT NULL,
		dest_id    INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (scope, kind, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_dest ON relations(scope, kind, dest_id)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		status      TEXT NOT NULL DEFAULT 'running'
		            CHECK(status IN ('running','finished','failed')),
		created     INTEGER NOT NULL DEFAULT 0,
		reused      INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS run_issues (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		kind      TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		name      TEXT NOT NULL DEFAULT '',
		severity  TEXT NOT NULL CHECK(severity IN ('warning','error')),
		reason    TEXT NOT NULL,
		at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_issues_run ON run_issues(run_id)`,
}
