package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/WizardKit/runtime/drafts"
)

func roundTrip(t *testing.T, store drafts.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &drafts.Draft{ID: "d1", WizardID: "w", FormData: map[string]any{"name": "John"}}))
	d, err := store.Load(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "John", d.FormData["name"])
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, closeFn, err := OpenStore(ctx, StoreSpec{Type: StoreMemory})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &drafts.MemoryStore{}, s)
		roundTrip(t, s)
	})

	t.Run("file", func(t *testing.T) {
		s, closeFn, err := OpenStore(ctx, StoreSpec{Type: StoreFile, Path: t.TempDir()})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &drafts.FileStore{}, s)
		roundTrip(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, closeFn, err := OpenStore(ctx, StoreSpec{Type: StoreSQLite, DSN: filepath.Join(t.TempDir(), "d.db")})
		require.NoError(t, err)
		assert.IsType(t, &drafts.SQLiteStore{}, s)
		roundTrip(t, s)
		assert.NoError(t, closeFn())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, closeFn, err := OpenStore(ctx, StoreSpec{
			Type:  StoreRedis,
			Redis: RedisSpec{Addr: mr.Addr(), Prefix: "test", TTL: "1h"},
		})
		require.NoError(t, err)
		assert.IsType(t, &drafts.RedisStore{}, s)
		roundTrip(t, s)
		assert.NotEmpty(t, mr.Keys())
		assert.NoError(t, closeFn())
	})

	t.Run("redis bad ttl", func(t *testing.T) {
		_, _, err := OpenStore(ctx, StoreSpec{Type: StoreRedis, Redis: RedisSpec{Addr: "localhost:0", TTL: "forever"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.redis.ttl")
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		s, closeFn, err := OpenStore(ctx, StoreSpec{Type: StoreHTTP, HTTP: HTTPSpec{BaseURL: srv.URL}})
		require.NoError(t, err)
		defer closeFn()
		_, err = s.Load(ctx, "missing")
		assert.ErrorIs(t, err, drafts.ErrNotFound)
	})

	t.Run("s3", func(t *testing.T) {
		t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
		s, closeFn, err := OpenStore(ctx, StoreSpec{
			Type: StoreS3,
			S3: S3Spec{
				Bucket:          "drafts",
				Prefix:          "listings",
				Endpoint:        "http://127.0.0.1:9000",
				AccessKeyID:     "minio",
				SecretAccessKey: "minio123",
			},
		})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &drafts.S3Store{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, closeFn, err := OpenStore(ctx, StoreSpec{Type: "mongo"})
		require.Error(t, err)
		assert.NotNil(t, closeFn)
	})
}
