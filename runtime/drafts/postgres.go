package drafts

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wizard_drafts (
    id                    TEXT    PRIMARY KEY,
    wizard_id             TEXT    NOT NULL DEFAULT '',
    form_data             TEXT    NOT NULL DEFAULT '{}',
    current_step          INTEGER NOT NULL DEFAULT 0,
    step_progress         TEXT    NOT NULL DEFAULT '',
    completion_percentage INTEGER NOT NULL DEFAULT 0,
    created_at            BIGINT  NOT NULL,
    updated_at            BIGINT  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wizard_drafts_wizard ON wizard_drafts (wizard_id, updated_at);
`

var postgresDialect = sqlDialect{
	migration: postgresMigration,
	upsert: `
		INSERT INTO wizard_drafts (id, wizard_id, form_data, current_step, step_progress, completion_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			wizard_id = EXCLUDED.wizard_id,
			form_data = EXCLUDED.form_data,
			current_step = EXCLUDED.current_step,
			step_progress = EXCLUDED.step_progress,
			completion_percentage = EXCLUDED.completion_percentage,
			updated_at = EXCLUDED.updated_at`,
	selectOne: `
		SELECT id, wizard_id, form_data, current_step, step_progress, completion_percentage, created_at, updated_at
		FROM wizard_drafts WHERE id = $1`,
	selectCreate: `SELECT created_at FROM wizard_drafts WHERE id = $1`,
	deleteOne:    `DELETE FROM wizard_drafts WHERE id = $1`,
	listAll:      `SELECT id FROM wizard_drafts ORDER BY updated_at DESC, id LIMIT $1 OFFSET $2`,
	listByWizard: `SELECT id FROM wizard_drafts WHERE wizard_id = $1 ORDER BY updated_at DESC, id LIMIT $2 OFFSET $3`,
}

// PostgresStore is a Store backed by PostgreSQL through the pgx driver,
// for multi-node deployments sharing one draft table.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn and migrates the draft table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{sqlStore: &sqlStore{db: db, dialect: postgresDialect}}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}
