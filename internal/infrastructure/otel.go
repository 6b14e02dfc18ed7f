package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "zapcatalog"
	ServiceVersion = "1.0.0"
	MeterName      = "zapcatalog"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the initialized OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns the development defaults: stdout traces,
// prometheus metrics, full sampling.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		TraceExporter:  "stdout",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics and installs the global
// providers and propagators.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing && cfg.TraceExporter != "none" {
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("OpenTelemetry initialized",
		slog.Bool("tracing", cfg.EnableTracing),
		slog.Bool("metrics", cfg.EnableMetrics))

	return providers, nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AppMetrics holds the application-level counters recorded by handlers.
type AppMetrics struct {
	CatalogEncodes     metric.Int64Counter
	CatalogDecodes     metric.Int64Counter
	DecodeFailures     metric.Int64Counter
	LicensesIssued     metric.Int64Counter
	ActivationAttempts metric.Int64Counter
	RequestDuration    metric.Float64Histogram
}

// CreateAppMetrics registers the application metrics on the meter.
func CreateAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var m AppMetrics
	var err error

	if m.CatalogEncodes, err = meter.Int64Counter("catalog_encodes_total",
		metric.WithDescription("Catalog tokens produced")); err != nil {
		return nil, err
	}
	if m.CatalogDecodes, err = meter.Int64Counter("catalog_decodes_total",
		metric.WithDescription("Catalog tokens decoded")); err != nil {
		return nil, err
	}
	if m.DecodeFailures, err = meter.Int64Counter("catalog_decode_failures_total",
		metric.WithDescription("Corrupted catalog tokens rejected")); err != nil {
		return nil, err
	}
	if m.LicensesIssued, err = meter.Int64Counter("licenses_issued_total",
		metric.WithDescription("License keys generated")); err != nil {
		return nil, err
	}
	if m.ActivationAttempts, err = meter.Int64Counter("license_activation_attempts_total",
		metric.WithDescription("License activation attempts, by outcome")); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCounter is a nil-safe increment helper so handlers work without
// initialized metrics in tests.
func RecordCounter(ctx context.Context, counter metric.Int64Counter, opts ...metric.AddOption) {
	if counter != nil {
		counter.Add(ctx, 1, opts...)
	}
}
