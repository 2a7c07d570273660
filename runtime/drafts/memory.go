package drafts

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store, suitable for tests and
// single-process use. Drafts are deep-copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]*Draft

	// wizardID -> set of draft IDs
	wizardIndex map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:      make(map[string]*Draft),
		wizardIndex: make(map[string]map[string]struct{}),
	}
}

// Load returns a copy of the stored draft.
func (s *MemoryStore) Load(_ context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

// Save stores a copy of draft. Timestamps are set on the caller's draft too.
func (s *MemoryStore) Save(_ context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.drafts[draft.ID]; ok {
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = prev.CreatedAt
		}
		if prev.WizardID != draft.WizardID {
			s.unindex(prev.WizardID, prev.ID)
		}
	}
	stamp(draft, time.Now())

	s.drafts[draft.ID] = draft.Clone()
	if draft.WizardID != "" {
		set, ok := s.wizardIndex[draft.WizardID]
		if !ok {
			set = make(map[string]struct{})
			s.wizardIndex[draft.WizardID] = set
		}
		set[draft.ID] = struct{}{}
	}
	return nil
}

// Delete removes a draft.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return ErrNotFound
	}
	s.unindex(d.WizardID, id)
	delete(s.drafts, id)
	return nil
}

// List returns draft IDs ordered by UpdatedAt, newest first.
func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if opts.WizardID != "" {
		for id := range s.wizardIndex[opts.WizardID] {
			ids = append(ids, id)
		}
	} else {
		ids = make([]string, 0, len(s.drafts))
		for id := range s.drafts {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := s.drafts[ids[i]], s.drafts[ids[j]]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return ids[i] < ids[j]
	})

	return paginate(ids, opts.Offset, opts.Limit), nil
}

// unindex must be called with the write lock held.
func (s *MemoryStore) unindex(wizardID, id string) {
	if wizardID == "" {
		return
	}
	set := s.wizardIndex[wizardID]
	delete(set, id)
	if len(set) == 0 {
		delete(s.wizardIndex, wizardID)
	}
}
