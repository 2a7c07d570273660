package drafts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/WizardKit/runtime/logger"
)

// Gateway is the persistence contract consumed by the wizard machine.
//
// Expected outcomes (a missing draft) are reported through Success=false;
// an error means the backend itself failed.
type Gateway interface {
	SaveDraft(ctx context.Context, draft *Draft) (SaveResult, error)
	LoadDraft(ctx context.Context, id string) (LoadResult, error)
	DeleteDraft(ctx context.Context, id string) (DeleteResult, error)
}

// SaveResult is returned by SaveDraft.
type SaveResult struct {
	Success bool
	DraftID string
}

// LoadResult is returned by LoadDraft. Data is nil unless Success is true.
type LoadResult struct {
	Success bool
	Data    *Draft
}

// DeleteResult is returned by DeleteDraft.
type DeleteResult struct {
	Success bool
}

// StoreGateway adapts a Store to the Gateway contract.
type StoreGateway struct {
	store Store
	newID func() string
	log   *slog.Logger
}

// GatewayOption configures a StoreGateway.
type GatewayOption func(*StoreGateway)

// WithIDGenerator overrides how IDs are assigned to new drafts.
// Default is a random UUID.
func WithIDGenerator(fn func() string) GatewayOption {
	return func(g *StoreGateway) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// WithGatewayLogger sets the logger used for operation logs.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *StoreGateway) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGateway wraps store in the Gateway contract.
func NewGateway(store Store, opts ...GatewayOption) *StoreGateway {
	g := &StoreGateway{
		store: store,
		newID: uuid.NewString,
		log:   logger.WithModule("runtime.drafts"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the underlying store.
func (g *StoreGateway) Store() Store { return g.store }

// SaveDraft stores a copy of draft, assigning an ID when it has none.
// The creation time of an existing draft with the same ID is kept.
func (g *StoreGateway) SaveDraft(ctx context.Context, draft *Draft) (SaveResult, error) {
	if draft == nil {
		return SaveResult{}, ErrInvalidDraft
	}
	start := time.Now()

	d := draft.Clone()
	if d.ID == "" {
		d.ID = g.newID()
	} else if d.CreatedAt.IsZero() {
		if existing, err := g.store.Load(ctx, d.ID); err == nil {
			d.CreatedAt = existing.CreatedAt
		}
	}

	err := g.store.Save(ctx, d)
	logger.DraftOperation(ctx, g.log, "save", d.ID, time.Since(start), err)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Success: true, DraftID: d.ID}, nil
}

// LoadDraft loads a draft. A missing draft is reported as Success=false.
func (g *StoreGateway) LoadDraft(ctx context.Context, id string) (LoadResult, error) {
	start := time.Now()
	d, err := g.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		logger.DraftOperation(ctx, g.log, "load", id, time.Since(start), nil)
		return LoadResult{}, nil
	}
	logger.DraftOperation(ctx, g.log, "load", id, time.Since(start), err)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Success: true, Data: d}, nil
}

// DeleteDraft removes a draft. A missing draft is reported as Success=false.
func (g *StoreGateway) DeleteDraft(ctx context.Context, id string) (DeleteResult, error) {
	start := time.Now()
	err := g.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		logger.DraftOperation(ctx, g.log, "delete", id, time.Since(start), nil)
		return DeleteResult{}, nil
	}
	logger.DraftOperation(ctx, g.log, "delete", id, time.Since(start), err)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Success: true}, nil
}
