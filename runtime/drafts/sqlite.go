package drafts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS wizard_drafts (
    id                    TEXT    PRIMARY KEY,
    wizard_id             TEXT    NOT NULL DEFAULT '',
    form_data             TEXT    NOT NULL DEFAULT '{}',
    current_step          INTEGER NOT NULL DEFAULT 0,
    step_progress         TEXT    NOT NULL DEFAULT '',
    completion_percentage INTEGER NOT NULL DEFAULT 0,
    created_at            INTEGER NOT NULL,
    updated_at            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wizard_drafts_wizard ON wizard_drafts (wizard_id, updated_at);
`

var sqliteDialect = sqlDialect{
	migration: sqliteMigration,
	upsert: `
		INSERT INTO wizard_drafts (id, wizard_id, form_data, current_step, step_progress, completion_percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			wizard_id = excluded.wizard_id,
			form_data = excluded.form_data,
			current_step = excluded.current_step,
			step_progress = excluded.step_progress,
			completion_percentage = excluded.completion_percentage,
			updated_at = excluded.updated_at`,
	selectOne: `
		SELECT id, wizard_id, form_data, current_step, step_progress, completion_percentage, created_at, updated_at
		FROM wizard_drafts WHERE id = ?`,
	selectCreate: `SELECT created_at FROM wizard_drafts WHERE id = ?`,
	deleteOne:    `DELETE FROM wizard_drafts WHERE id = ?`,
	listAll:      `SELECT id FROM wizard_drafts ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
	listByWizard: `SELECT id FROM wizard_drafts WHERE wizard_id = ? ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
}

// SQLiteStore is a Store backed by an SQLite database file. It suits
// single-node deployments and the wizardctl CLI.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (and migrates) the database at dsn. Use ":memory:"
// for a throwaway database.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes writes (and keeps a :memory: database alive).
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{sqlStore: &sqlStore{db: db, dialect: sqliteDialect}}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}
