// Package otel exports relief traces over OTLP/HTTP.
//
// The reconciler is the main span source: each pass opens reconcile.pass,
// every donation it checks gets a reconcile.donation child, chain reads add
// oracle.get_transfer and funding audits add reconcile.audit. The API and the
// reconciler health server contribute spans through their otel middleware.
package otel

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/reliefnet/reliefnet/internal/platform/config"
)

const serviceNamespace = "reliefnet"

// Settings selects where relief spans go and how many of them are kept.
type Settings struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	// SampleRatio applies to root spans only. A reconcile pass that is
	// sampled keeps all of its donation and oracle children.
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Validate rejects ratios outside [0, 1].
func (s Settings) Validate() error {
	if s.SampleRatio < 0 || s.SampleRatio > 1 {
		return fmt.Errorf("otel sample ratio %v outside [0, 1]", s.SampleRatio)
	}
	return nil
}

// LoadSettings reads RELIEF_OTEL_* variables.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := config.ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := config.Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Setup installs the global tracer provider for a relief binary.
//
// Tracing is opt-in: with no endpoint, or RELIEF_OTEL_ENABLED=false, the
// global provider stays the no-op default and reconcile spans cost nothing.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	settings, err := LoadSettings()
	if err != nil {
		return noop, err
	}
	if !settings.Enabled || settings.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(settings.Endpoint))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(serviceAttributes(serviceName)...))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(settings.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// sampler keeps a ratio of root spans; a ratio of 1 keeps every pass.
func sampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// serviceAttributes tags spans with the binary and a per-process instance
// id, so passes from an embedded and a standalone reconciler stay apart.
func serviceAttributes(serviceName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceNamespace(serviceNamespace),
		semconv.ServiceVersion(buildVersion()),
		semconv.ServiceInstanceID(uuid.NewString()),
	}
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}
