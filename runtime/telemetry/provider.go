// Package telemetry turns wizard analytics events into OpenTelemetry spans
// and configures the tracer provider and propagators.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/WizardKit/runtime/version"
)

// InstrumentationName is the OTel instrumentation scope name.
const InstrumentationName = "github.com/AltairaLabs/WizardKit"

// DefaultServiceName is reported when ProviderConfig.ServiceName is empty.
const DefaultServiceName = "wizardkit"

// Tracer returns the WizardKit tracer from tp, or from the global provider
// when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version.Get()))
}

// ProviderConfig describes where and how much to export.
type ProviderConfig struct {
	// Endpoint is the full OTLP/HTTP traces URL.
	Endpoint    string
	ServiceName string
	// Headers are sent with every export request, e.g. an API key.
	Headers map[string]string
	// SampleRatio is the fraction of new root traces kept. Zero keeps all.
	// Children follow their parent's decision.
	SampleRatio float64
}

func (c ProviderConfig) sampler() (sdktrace.Sampler, error) {
	switch {
	case c.SampleRatio < 0 || c.SampleRatio > 1:
		return nil, fmt.Errorf("sample ratio %v outside [0, 1]", c.SampleRatio)
	case c.SampleRatio == 0 || c.SampleRatio == 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio)), nil
	}
}

// NewTracerProvider creates a TracerProvider batching spans to cfg.Endpoint.
// extra options are applied last, so tests can swap in a span recorder.
// The caller must Shutdown the returned provider.
func NewTracerProvider(ctx context.Context, cfg ProviderConfig, extra ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	sampler, err := cfg.sampler()
	if err != nil {
		return nil, err
	}

	clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", name),
			attribute.String("service.version", version.Get()),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}, extra...)
	return sdktrace.NewTracerProvider(opts...), nil
}

// SetupPropagation installs W3C TraceContext, W3C Baggage and AWS X-Ray
// propagators globally. otelhttp clients and handlers pick them up.
func SetupPropagation() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		xray.Propagator{},
	))
}
