package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/AltairaLabs/WizardKit/runtime/telemetry"
)

// Store types accepted in ServiceSpec.Store.Type.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreHTTP     = "http"
	StoreS3       = "s3"
)

// Service defaults.
const (
	DefaultServerAddr   = ":8080"
	DefaultMetricsAddr  = ":9090"
	DefaultMaxBodyBytes = 1 << 20
	DefaultServiceName  = "wizardkit"
)

// ServiceConfig is a kind: ServiceConfig document.
type ServiceConfig struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       ServiceSpec       `yaml:"spec"`
}

// ServiceSpec configures wizardctl serve and the CLI draft commands.
type ServiceSpec struct {
	Store   StoreSpec         `yaml:"store"`
	Server  ServerSpec        `yaml:"server,omitempty"`
	Metrics MetricsSpec       `yaml:"metrics,omitempty"`
	Tracing TracingSpec       `yaml:"tracing,omitempty"`
	Logging LoggingConfigSpec `yaml:"logging,omitempty"`
}

// StoreSpec selects the draft store backend.
type StoreSpec struct {
	Type string `yaml:"type"`

	// Path is the directory of a file store.
	Path string `yaml:"path,omitempty"`

	// DSN is the data source of a sqlite or postgres store.
	DSN string `yaml:"dsn,omitempty"`

	Redis RedisSpec `yaml:"redis,omitempty"`
	HTTP  HTTPSpec  `yaml:"http,omitempty"`
	S3    S3Spec    `yaml:"s3,omitempty"`
}

// RedisSpec configures a redis store. TTL is a Go duration string.
type RedisSpec struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	TTL      string `yaml:"ttl,omitempty"`
}

// HTTPSpec configures a remote draft API client.
type HTTPSpec struct {
	BaseURL string            `yaml:"baseURL"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// S3Spec configures an S3 store. Credentials come from the default AWS chain
// unless an access key is given.
type S3Spec struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"accessKeyID,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
	RoleARN         string `yaml:"roleARN,omitempty"`
}

// ServerSpec configures the draft API server.
type ServerSpec struct {
	Addr         string        `yaml:"addr,omitempty"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes,omitempty"`
	RateLimit    RateLimitSpec `yaml:"rateLimit,omitempty"`
}

// RateLimitSpec is a per-client token bucket. Zero RequestsPerSecond
// disables limiting.
type RateLimitSpec struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// MetricsSpec configures the Prometheus exporter.
type MetricsSpec struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// TracingSpec configures OTLP trace export. An empty endpoint disables it.
type TracingSpec struct {
	Endpoint    string            `yaml:"endpoint,omitempty"`
	ServiceName string            `yaml:"serviceName,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	SampleRatio float64           `yaml:"sampleRatio,omitempty"`
}

// ProviderConfig converts the section for telemetry.NewTracerProvider.
func (t TracingSpec) ProviderConfig() telemetry.ProviderConfig {
	return telemetry.ProviderConfig{
		Endpoint:    t.Endpoint,
		ServiceName: t.ServiceName,
		Headers:     t.Headers,
		SampleRatio: t.SampleRatio,
	}
}

// DefaultServiceSpec returns an in-memory service on the default ports.
func DefaultServiceSpec() ServiceSpec {
	s := ServiceSpec{Store: StoreSpec{Type: StoreMemory}, Logging: DefaultLoggingConfig()}
	s.applyDefaults()
	return s
}

// LoadServiceConfig reads, validates and decodes a ServiceConfig file.
func LoadServiceConfig(filename string) (*ServiceConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read service config: %w", err)
	}
	c, err := ParseServiceConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// ParseServiceConfig validates and decodes a ServiceConfig manifest and
// fills in defaults.
func ParseServiceConfig(data []byte) (*ServiceConfig, error) {
	data = []byte(os.ExpandEnv(string(data)))

	if err := ValidateManifest(data, KindServiceConfig); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var c ServiceConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse service config: %w", err)
	}
	c.Spec.applyDefaults()
	if err := c.Spec.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ServiceSpec) applyDefaults() {
	if s.Store.Type == "" {
		s.Store.Type = StoreMemory
	}
	if s.Server.Addr == "" {
		s.Server.Addr = DefaultServerAddr
	}
	if s.Server.MaxBodyBytes == 0 {
		s.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.Metrics.Addr == "" {
		s.Metrics.Addr = DefaultMetricsAddr
	}
	if s.Tracing.ServiceName == "" {
		s.Tracing.ServiceName = DefaultServiceName
	}
}

// Validate checks settings the schema cannot express. Errors are *FieldError.
func (s *ServiceSpec) Validate() error {
	st := s.Store
	var missing string
	switch st.Type {
	case StoreMemory:
	case StoreFile:
		if st.Path == "" {
			missing = "store.path"
		}
	case StoreSQLite, StorePostgres:
		if st.DSN == "" {
			missing = "store.dsn"
		}
	case StoreRedis:
		if st.Redis.Addr == "" {
			missing = "store.redis.addr"
		}
	case StoreHTTP:
		if st.HTTP.BaseURL == "" {
			missing = "store.http.baseURL"
		}
	case StoreS3:
		if st.S3.Bucket == "" {
			missing = "store.s3.bucket"
		}
	default:
		return &FieldError{Field: "store.type", Message: "unknown store type", Value: st.Type}
	}
	if missing != "" {
		return &FieldError{Field: missing, Message: "is required when store.type is " + st.Type}
	}
	return s.Logging.Validate()
}
