package config

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/WizardKit/runtime/drafts"
)

// OpenStore builds the draft store described by spec. The returned close
// function releases connections and is never nil.
func OpenStore(ctx context.Context, spec StoreSpec) (drafts.Store, func() error, error) {
	noop := func() error { return nil }

	switch spec.Type {
	case "", StoreMemory:
		return drafts.NewMemoryStore(), noop, nil

	case StoreFile:
		s, err := drafts.NewFileStore(spec.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	case StoreSQLite:
		s, err := drafts.NewSQLiteStore(ctx, spec.DSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case StorePostgres:
		s, err := drafts.NewPostgresStore(ctx, spec.DSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case StoreRedis:
		var opts []drafts.RedisOption
		if spec.Redis.Prefix != "" {
			opts = append(opts, drafts.WithPrefix(spec.Redis.Prefix))
		}
		if spec.Redis.TTL != "" {
			ttl, err := time.ParseDuration(spec.Redis.TTL)
			if err != nil {
				return nil, noop, fmt.Errorf("invalid store.redis.ttl: %w", err)
			}
			opts = append(opts, drafts.WithTTL(ttl))
		}
		client := redis.NewClient(&redis.Options{
			Addr:     spec.Redis.Addr,
			Password: spec.Redis.Password,
			DB:       spec.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", spec.Redis.Addr, err)
		}
		return drafts.NewRedisStore(client, opts...), closer(client), nil

	case StoreHTTP:
		var opts []drafts.HTTPOption
		for k, v := range spec.HTTP.Headers {
			opts = append(opts, drafts.WithHeader(k, v))
		}
		return drafts.NewHTTPStore(spec.HTTP.BaseURL, opts...), noop, nil

	case StoreS3:
		client, err := drafts.NewS3Client(ctx, drafts.S3ClientOptions{
			Region:          spec.S3.Region,
			Endpoint:        spec.S3.Endpoint,
			AccessKeyID:     spec.S3.AccessKeyID,
			SecretAccessKey: spec.S3.SecretAccessKey,
			RoleARN:         spec.S3.RoleARN,
		})
		if err != nil {
			return nil, noop, err
		}
		var opts []drafts.S3Option
		if spec.S3.Prefix != "" {
			opts = append(opts, drafts.WithKeyPrefix(spec.S3.Prefix))
		}
		return drafts.NewS3Store(client, spec.S3.Bucket, opts...), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown store type %q", spec.Type)
}

func closer(c io.Closer) func() error { return c.Close }
