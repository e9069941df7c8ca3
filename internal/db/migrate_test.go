package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"relations", "runs", "run_issues"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_RejectsUnknownKind(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO relations (scope, kind, source_id, dest_id, created_at)
		VALUES (0, 'bogus', 1, 2, '2026-01-01T00:00:00Z')`)
	assert.Error(t, err)
}

func TestOpenDB_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relations.db")

	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO relations (scope, kind, source_id, dest_id, created_at)
		VALUES (0, 'plan', 1, 2, '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
