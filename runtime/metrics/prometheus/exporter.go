package prometheus

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AltairaLabs/WizardKit/pkg/httputil"
	"github.com/AltairaLabs/WizardKit/runtime/version"
)

// Exporter serves the wizard metrics at /metrics and a liveness probe at
// /health.
type Exporter struct {
	addr     string
	registry *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
}

// ExporterOption configures an Exporter.
type ExporterOption func(*exporterConfig)

type exporterConfig struct {
	registry      *prometheus.Registry
	runtime       bool
	wizardMetrics bool
}

// WithRegistry serves reg instead of a fresh registry. Nothing is registered
// on it unless WithWizardMetrics or WithRuntimeMetrics is also given.
func WithRegistry(reg *prometheus.Registry) ExporterOption {
	return func(c *exporterConfig) {
		c.registry = reg
		c.runtime = false
		c.wizardMetrics = false
	}
}

// WithWizardMetrics registers the package's wizard collectors.
func WithWizardMetrics() ExporterOption {
	return func(c *exporterConfig) { c.wizardMetrics = true }
}

// WithRuntimeMetrics registers the Go runtime and process collectors.
func WithRuntimeMetrics() ExporterOption {
	return func(c *exporterConfig) { c.runtime = true }
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "WizardKit build, always 1",
	},
	[]string{"version", "commit"},
)

// NewExporter creates an exporter listening on addr. Without options it
// serves a new registry holding the wizard metrics, the build info gauge and
// the Go runtime collectors.
func NewExporter(addr string, opts ...ExporterOption) *Exporter {
	cfg := exporterConfig{runtime: true, wizardMetrics: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg := cfg.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	if cfg.wizardMetrics {
		for _, c := range allMetrics {
			reg.MustRegister(c)
		}
		buildInfo.WithLabelValues(version.Get(), version.Commit()).Set(1)
		reg.MustRegister(buildInfo)
	}
	if cfg.runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return &Exporter{addr: addr, registry: reg}
}

// Registry returns the registry being served.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Register adds a collector, e.g. one owned by a draft store.
func (e *Exporter) Register(c prometheus.Collector) error {
	return e.registry.Register(c)
}

// Handler serves the registry in the OpenMetrics format when asked for it.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start blocks serving until Shutdown. It returns http.ErrServerClosed once
// shut down, also when Shutdown ran first.
func (e *Exporter) Start() error {
	return e.httpServer().ListenAndServe()
}

// Shutdown stops the server started by Start.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.httpServer().Shutdown(ctx)
}

func (e *Exporter) httpServer() *http.Server {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.server != nil {
		return e.server
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", e.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	e.server = httputil.NewServer(e.addr, mux)
	return e.server
}
