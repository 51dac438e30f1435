package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"abrsqol/internal/config"
)

const (
	// InstrumentationName names the tracer and meter of every component.
	InstrumentationName = "abrsqol"
	// ServiceVersion is reported as service.version.
	ServiceVersion = "1.0.0"
)

// OTelProviders holds the OpenTelemetry providers. When telemetry is
// disabled Tracer and Meter are no-ops and PrometheusHTTP is nil.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

// InitializeOTel installs global tracer and meter providers. Metrics are
// exported through a dedicated Prometheus registry that also carries the Go
// runtime and process collectors. Spans are always recorded so log lines
// can be correlated by trace_id; they are printed to stderr only when
// TraceStdout is set.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	providers := &OTelProviders{Logger: logger}

	if !cfg.Enabled {
		providers.Tracer = tracenoop.NewTracerProvider().Tracer(InstrumentationName)
		providers.Meter = metricnoop.NewMeterProvider().Meter(InstrumentationName)
		logger.Info("OpenTelemetry disabled")
		return providers, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = InstrumentationName
	}

	ctx := context.Background()
	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", serviceName),
		slog.String("version", ServiceVersion),
		slog.Bool("trace_stdout", cfg.TraceStdout))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete")
	return providers, nil
}

func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.TraceStdout {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.Registry = registry
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(ServiceVersion))
	otel.SetMeterProvider(mp)
	return nil
}

// AppMetrics holds the HTTP and job instruments shared by the server and
// the service layer. Solver instruments live with the solver.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	JobsTotal   metric.Int64Counter
	JobDuration metric.Float64Histogram
	JobErrors   metric.Int64Counter
}

// CreateAppMetrics registers the application instruments on meter.
func CreateAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.JobsTotal, err = meter.Int64Counter(
		"qol_jobs_total",
		metric.WithDescription("Total number of inversion jobs"),
	); err != nil {
		return nil, err
	}
	if m.JobDuration, err = meter.Float64Histogram(
		"qol_job_duration_seconds",
		metric.WithDescription("Inversion job duration in seconds, including table I/O"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.JobErrors, err = meter.Int64Counter(
		"qol_job_errors_total",
		metric.WithDescription("Total number of failed inversion jobs"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordJob records one finished inversion job. source is "file" or
// "request"; errKind is empty for jobs that returned a result.
func (m *AppMetrics) RecordJob(ctx context.Context, source string, duration time.Duration, converged bool, errKind string) {
	if m == nil {
		return
	}
	status := "converged"
	switch {
	case errKind != "":
		status = "failed"
	case !converged:
		status = "capped"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status),
	)
	m.JobsTotal.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, duration.Seconds(), attrs)
	if errKind != "" {
		m.JobErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("error.kind", errKind),
		))
	}
}

// Shutdown flushes and stops both providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the span trace ID for log correlation.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
