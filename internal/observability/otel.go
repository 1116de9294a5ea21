// Package observability wires process-wide telemetry: OpenTelemetry tracing
// exported over OTLP/gRPC, and the Prometheus collectors for the discovery
// engine (pipeline latency, dedupe counts, cache outcomes).
package observability

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-discovery-backend/internal/config"
)

// ScopeName is the instrumentation scope of engine spans.
const ScopeName = "github.com/tbourn/go-discovery-backend"

// UntracedPrefixes are request paths that never start a server span.
var UntracedPrefixes = []string{"/metrics", "/health", "/swagger/"}

// test seams
var (
	newOTLPClient = otlptracegrpc.NewClient

	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newServiceResourceFn = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// EngineAttributes describes the engine tuning as resource attributes, so
// traces from differently tuned deployments can be told apart.
func EngineAttributes(e config.EngineConfig) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64("discovery.dup_threshold", e.DupThreshold),
		attribute.Float64("discovery.cross_threshold", e.CrossThreshold),
		attribute.Int("discovery.category_cap", e.CategoryCap),
		attribute.Int("discovery.expand_target", e.ExpandTarget),
		attribute.Bool("discovery.seeded", e.Seed != 0),
		attribute.Bool("discovery.transitive_groups", e.Transitive),
		attribute.Bool("discovery.vector_fallback", e.VectorFallback),
	}
}

// SetupOTel installs the global tracer provider and propagator and returns
// its shutdown function. With tracing disabled it returns a no-op shutdown and
// leaves the globals alone, so spans started by the engine and the GORM
// plugin go to the no-op provider.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, engine config.EngineConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newOTLPExporterFn(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	}, EngineAttributes(engine)...)
	res, err := newServiceResourceFn(ctx, attrs...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// TraceRequest reports whether an HTTP request should be traced. It matches
// otelgin's filter signature.
func TraceRequest(r *http.Request) bool {
	for _, p := range UntracedPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return false
		}
	}
	return true
}

// StartSpan starts an engine span named component.op under ScopeName.
func StartSpan(ctx context.Context, component, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(ScopeName+"/"+component).Start(ctx, op, trace.WithAttributes(attrs...))
}
