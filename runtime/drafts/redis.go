package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRedisTTL is how long an untouched draft lives in Redis.
const defaultRedisTTL = 30 * 24 * time.Hour

// RedisStore stores each draft as a JSON blob with a TTL and keeps a
// per-wizard index set for List.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for drafts. Every save refreshes it.
// Default is 30 days. Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "wizardkit".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed draft store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(7 * 24 * time.Hour),
//	    WithPrefix("listings"),
//	)
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultRedisTTL,
		prefix: "wizardkit",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load retrieves a draft.
func (s *RedisStore) Load(ctx context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

// Save writes the draft and updates the wizard indexes in one pipeline. A
// draft moved to another wizard leaves its old index.
func (s *RedisStore) Save(ctx context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}

	var prevWizard string
	if prev, err := s.Load(ctx, draft.ID); err == nil {
		prevWizard = prev.WizardID
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = prev.CreatedAt
		}
	}
	stamp(draft, time.Now())

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.draftKey(draft.ID), data, s.ttl)
	pipe.SAdd(ctx, s.allIndexKey(), draft.ID)
	if prevWizard != "" && prevWizard != draft.WizardID {
		pipe.SRem(ctx, s.wizardIndexKey(prevWizard), draft.ID)
	}
	if draft.WizardID != "" {
		indexKey := s.wizardIndexKey(draft.WizardID)
		pipe.SAdd(ctx, indexKey, draft.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, indexKey, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Delete removes the draft and its index entries.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	d, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	delCmd := pipe.Del(ctx, s.draftKey(id))
	pipe.SRem(ctx, s.allIndexKey(), id)
	if d.WizardID != "" {
		pipe.SRem(ctx, s.wizardIndexKey(d.WizardID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	if delCmd.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns draft IDs from the index sets. IDs whose draft has expired
// are pruned from the index as they are found.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	indexKey := s.allIndexKey()
	if opts.WizardID != "" {
		indexKey = s.wizardIndexKey(opts.WizardID)
	}

	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}
	sort.Strings(members)

	live := make([]string, 0, len(members))
	for _, id := range members {
		n, err := s.client.Exists(ctx, s.draftKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists failed: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, indexKey, id)
			continue
		}
		live = append(live, id)
	}
	return paginate(live, opts.Offset, opts.Limit), nil
}

func (s *RedisStore) draftKey(id string) string {
	return fmt.Sprintf("%s:draft:%s", s.prefix, id)
}

func (s *RedisStore) allIndexKey() string {
	return fmt.Sprintf("%s:drafts", s.prefix)
}

func (s *RedisStore) wizardIndexKey(wizardID string) string {
	return fmt.Sprintf("%s:wizard:%s:drafts", s.prefix, strings.ReplaceAll(wizardID, ":", "_"))
}
