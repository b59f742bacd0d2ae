// Package telemetry configures OpenTelemetry tracing with an OTLP gRPC
// exporter. Setup is idempotent: repeated calls return the shutdown
// function from the first successful call.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/version"
)

const tracerName = "github.com/opsgraph/opsgraph"

// Config holds tracing settings. An empty Endpoint disables export and
// Setup installs a provider that records nothing.
type Config struct {
	ServiceName string
	Endpoint    string
	Headers     map[string]string
}

var (
	setupOnce  sync.Once
	setupErr   error
	shutdownFn func(context.Context) error
)

// Setup installs the global tracer provider and returns a shutdown
// function to flush pending spans. Safe to call more than once.
func Setup(ctx context.Context, cfg *Config, logger *zap.Logger) (func(context.Context) error, error) {
	setupOnce.Do(func() {
		shutdownFn, setupErr = install(ctx, cfg, logger)
	})
	return shutdownFn, setupErr
}

func install(ctx context.Context, cfg *Config, logger *zap.Logger) (func(context.Context) error, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Endpoint != "" {
		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("tracing enabled",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("service", cfg.ServiceName))
	} else {
		logger.Info("tracing disabled: no endpoint configured")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	endpoint, insecure := parseEndpoint(cfg.Endpoint)

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
	}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	return otlptracegrpc.New(ctx, opts...)
}

// parseEndpoint strips an optional scheme from the configured endpoint.
// A plain http scheme downgrades the connection to insecure.
func parseEndpoint(endpoint string) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), true
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), false
	default:
		return endpoint, false
	}
}

// Tracer returns the application tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
