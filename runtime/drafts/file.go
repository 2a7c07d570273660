package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	draftFileExt    = ".json"
	dirPermissions  = 0o750
	filePermissions = 0o600
)

// FileStore keeps one JSON file per draft in a directory. Writes go to a
// temporary file that is renamed into place, so readers never see a partial
// draft.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("draft directory is required")
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create draft directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+draftFileExt)
}

// Load reads a draft file.
func (s *FileStore) Load(_ context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) read(id string) (*Draft, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

// Save writes a draft atomically.
func (s *FileStore) Save(_ context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.CreatedAt.IsZero() {
		if prev, err := s.read(draft.ID); err == nil {
			draft.CreatedAt = prev.CreatedAt
		}
	}
	stamp(draft, time.Now())

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+draft.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set draft permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close draft: %w", err)
	}
	if err := os.Rename(tmpName, s.path(draft.ID)); err != nil {
		return fmt.Errorf("failed to move draft into place: %w", err)
	}
	return nil
}

// Delete removes a draft file.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// List scans the directory. Filtering by wizard requires reading each file.
func (s *FileStore) List(_ context.Context, opts ListOptions) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft directory: %w", err)
	}

	type item struct {
		id      string
		updated time.Time
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, draftFileExt) {
			continue
		}
		id := strings.TrimSuffix(name, draftFileExt)
		d, err := s.read(id)
		if err != nil {
			continue
		}
		if opts.WizardID != "" && d.WizardID != opts.WizardID {
			continue
		}
		items = append(items, item{id: id, updated: d.UpdatedAt})
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].updated.Equal(items[j].updated) {
			return items[i].updated.After(items[j].updated)
		}
		return items[i].id < items[j].id
	})

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return paginate(ids, opts.Offset, opts.Limit), nil
}
