package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// sqlDialect holds the statements that differ between SQL backends.
// Timestamps are stored as Unix nanoseconds so both backends round-trip
// them without driver-specific time parsing.
type sqlDialect struct {
	migration    string
	upsert       string
	selectOne    string
	selectCreate string
	deleteOne    string
	listAll      string
	listByWizard string
}

// sqlStore implements Store over database/sql.
type sqlStore struct {
	db      *sql.DB
	dialect sqlDialect
}

func (s *sqlStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.migration)
	return err
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Load retrieves a draft row.
func (s *sqlStore) Load(ctx context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var (
		d                    Draft
		formData, progress   string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.selectOne, id).Scan(
		&d.ID, &d.WizardID, &formData, &d.CurrentStep, &progress,
		&d.CompletionPercentage, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select draft: %w", err)
	}

	if err := json.Unmarshal([]byte(formData), &d.FormData); err != nil {
		return nil, fmt.Errorf("unmarshal form data: %w", err)
	}
	if progress != "" {
		if err := json.Unmarshal([]byte(progress), &d.StepProgress); err != nil {
			return nil, fmt.Errorf("unmarshal step progress: %w", err)
		}
	}
	d.CreatedAt = time.Unix(0, createdAt).UTC()
	d.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &d, nil
}

// Save upserts a draft row. created_at is never overwritten.
func (s *sqlStore) Save(ctx context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}

	if draft.CreatedAt.IsZero() {
		var createdAt int64
		err := s.db.QueryRowContext(ctx, s.dialect.selectCreate, draft.ID).Scan(&createdAt)
		if err == nil {
			draft.CreatedAt = time.Unix(0, createdAt).UTC()
		}
	}
	stamp(draft, time.Now().UTC())

	formData := draft.FormData
	if formData == nil {
		formData = map[string]any{}
	}
	fd, err := json.Marshal(formData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	progress := ""
	if draft.StepProgress != nil {
		p, err := json.Marshal(draft.StepProgress)
		if err != nil {
			return fmt.Errorf("marshal step progress: %w", err)
		}
		progress = string(p)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsert,
		draft.ID, draft.WizardID, string(fd), draft.CurrentStep, progress,
		draft.CompletionPercentage, draft.CreatedAt.UnixNano(), draft.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// Delete removes a draft row.
func (s *sqlStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.dialect.deleteOne, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns IDs ordered by updated_at, newest first.
func (s *sqlStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)
	if opts.WizardID != "" {
		rows, err = s.db.QueryContext(ctx, s.dialect.listByWizard, opts.WizardID, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, s.dialect.listAll, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan draft id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
