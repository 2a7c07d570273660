// Package drafts persists resumable wizard drafts.
//
// A Store is a keyed blob store for Draft records with several backends
// (memory, file, Redis, SQLite, PostgreSQL, S3 and a remote HTTP API). The wizard
// machine does not talk to a Store directly; it uses the Gateway contract,
// which NewGateway builds on top of any Store.
package drafts

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/mohae/deepcopy"
)

// Store defines the interface for persistent draft storage.
type Store interface {
	// Load retrieves a draft by ID. Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, id string) (*Draft, error)

	// Save creates or overwrites a draft.
	Save(ctx context.Context, draft *Draft) error

	// Delete removes a draft. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// List returns draft IDs matching the options, most recently updated first
	// where the backend can order them.
	List(ctx context.Context, opts ListOptions) ([]string, error)
}

// ListOptions provides filtering and pagination for List.
type ListOptions struct {
	// WizardID restricts results to drafts of one wizard. Empty lists all.
	WizardID string

	// Limit is the maximum number of IDs to return. 0 applies DefaultListLimit.
	Limit int

	// Offset is the number of IDs to skip.
	Offset int
}

// DefaultListLimit is applied when ListOptions.Limit is zero.
const DefaultListLimit = 100

var (
	// ErrNotFound is returned when a draft doesn't exist in the store.
	ErrNotFound = errors.New("draft not found")

	// ErrInvalidID is returned when a draft ID is empty or unsafe.
	ErrInvalidID = errors.New("invalid draft ID")

	// ErrInvalidDraft is returned when a nil or malformed draft is saved.
	ErrInvalidDraft = errors.New("invalid draft")
)

// Draft is the persisted, resumable state of one wizard session.
type Draft struct {
	ID                   string         `json:"id" jsonschema:"minLength=1,maxLength=128,description=Draft identifier"`
	WizardID             string         `json:"wizard_id,omitempty" jsonschema:"description=Wizard the draft belongs to"`
	FormData             map[string]any `json:"form_data" jsonschema:"description=Accumulated form data"`
	CurrentStep          int            `json:"current_step" jsonschema:"minimum=0,description=Zero-based index of the step to resume at"`
	StepProgress         map[string]int `json:"step_progress,omitempty" jsonschema:"description=Completion percentage per step id"`
	CompletionPercentage int            `json:"completion_percentage" jsonschema:"minimum=0,maximum=100"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	cp := *d
	if d.FormData != nil {
		cp.FormData, _ = deepcopy.Copy(d.FormData).(map[string]any)
	}
	if d.StepProgress != nil {
		cp.StepProgress = make(map[string]int, len(d.StepProgress))
		for k, v := range d.StepProgress {
			cp.StepProgress[k] = v
		}
	}
	return &cp
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID reports ErrInvalidID unless id is a safe draft identifier:
// 1-128 characters of letters, digits, '.', '_' or '-', not starting with
// punctuation. IDs are used as file names and URL path segments.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

func validateDraft(d *Draft) error {
	if d == nil {
		return ErrInvalidDraft
	}
	if d.CurrentStep < 0 {
		return ErrInvalidDraft
	}
	return ValidateID(d.ID)
}

// stamp sets UpdatedAt, and CreatedAt when it has not been set yet.
func stamp(d *Draft, now time.Time) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
}

// paginate applies offset and limit to an ID list.
func paginate(ids []string, offset, limit int) []string {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}
