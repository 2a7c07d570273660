package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServiceConfig(t *testing.T) {
	t.Setenv("WIZARDKIT_TEST_DSN", "/var/lib/wizardkit/drafts.db")

	c, err := LoadServiceConfig(filepath.Join("testdata", "service.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "drafts", c.Metadata.Name)
	assert.Equal(t, StoreSQLite, c.Spec.Store.Type)
	assert.Equal(t, "/var/lib/wizardkit/drafts.db", c.Spec.Store.DSN)
	assert.Equal(t, ":8181", c.Spec.Server.Addr)
	assert.Equal(t, int64(DefaultMaxBodyBytes), c.Spec.Server.MaxBodyBytes)
	assert.InDelta(t, 5.0, c.Spec.Server.RateLimit.RequestsPerSecond, 0.001)
	assert.Equal(t, 10, c.Spec.Server.RateLimit.Burst)
	assert.True(t, c.Spec.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsAddr, c.Spec.Metrics.Addr)
	assert.Equal(t, DefaultServiceName, c.Spec.Tracing.ServiceName)
	assert.Equal(t, LogFormatJSON, c.Spec.Logging.Format)
	require.Len(t, c.Spec.Logging.Modules, 1)
	assert.Equal(t, "runtime.wizard", c.Spec.Logging.Modules[0].Name)
}

func TestParseServiceConfig_Errors(t *testing.T) {
	head := "apiVersion: wizardkit.altairalabs.ai/v1alpha1\nkind: ServiceConfig\nspec:\n"
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown store", head + "  store:\n    type: mongo\n", "schema validation failed"},
		{"file without path", head + "  store:\n    type: file\n", "invalid store.path: is required when store.type is file"},
		{"sqlite without dsn", head + "  store:\n    type: sqlite\n", "invalid store.dsn"},
		{"redis without addr", head + "  store:\n    type: redis\n", "invalid store.redis.addr"},
		{"s3 without bucket", head + "  store:\n    type: s3\n", "invalid store.s3.bucket: is required when store.type is s3"},
		{"s3 unknown field", head + "  store:\n    type: s3\n    s3:\n      bucket: b\n      acl: public\n", "schema validation failed"},
		{"sample ratio above one", head + "  tracing:\n    sampleRatio: 1.5\n", "schema validation failed"},
		{"bad log level", head + "  logging:\n    defaultLevel: loud\n", "schema validation failed"},
		{"wrong api version", "apiVersion: v1\nkind: ServiceConfig\nspec: {}\n", "schema validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseServiceConfig([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseServiceConfig_Defaults(t *testing.T) {
	c, err := ParseServiceConfig([]byte("apiVersion: wizardkit.altairalabs.ai/v1alpha1\nkind: ServiceConfig\nspec: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, c.Spec.Store.Type)
	assert.Equal(t, DefaultServerAddr, c.Spec.Server.Addr)
	assert.False(t, c.Spec.Metrics.Enabled)
}

func TestDefaultServiceSpec(t *testing.T) {
	s := DefaultServiceSpec()
	assert.Equal(t, StoreMemory, s.Store.Type)
	assert.Equal(t, DefaultServerAddr, s.Server.Addr)
	assert.Equal(t, LogLevelInfo, s.Logging.DefaultLevel)
	require.NoError(t, s.Validate())
}

func TestTracingSpec_ProviderConfig(t *testing.T) {
	spec := TracingSpec{
		Endpoint:    "http://collector:4318/v1/traces",
		ServiceName: "drafts",
		Headers:     map[string]string{"x-api-key": "k"},
		SampleRatio: 0.5,
	}
	pc := spec.ProviderConfig()
	assert.Equal(t, spec.Endpoint, pc.Endpoint)
	assert.Equal(t, "drafts", pc.ServiceName)
	assert.Equal(t, "k", pc.Headers["x-api-key"])
	assert.InDelta(t, 0.5, pc.SampleRatio, 0.0001)
}
