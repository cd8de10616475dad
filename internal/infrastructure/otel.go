package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"scorecard/internal/config"
	"scorecard/pkg/contracts"
)

const (
	ServiceName = "scorecard"
	MeterName   = "scorecard"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// always usable; they are no-ops when the matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry gathers the metrics exported by the prometheus reader. It is
	// private to the run so several runs in one process don't collide.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// OTelConfigFrom maps the telemetry section of the application config.
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	env := os.Getenv("SCORECARD_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
		SampleRatio:    cfg.SampleRatio,
	}
}

// InitializeOTel sets up tracing and batch metrics for one run.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.Default().Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.Bool("tracing_enabled", providers.TracerProvider != nil),
		slog.Bool("metrics_enabled", providers.MeterProvider != nil))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		// a batch run is short; export spans as they end
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(reg),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = reg
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// WriteMetrics writes the gathered metrics in the prometheus text format,
// suitable for the node_exporter textfile collector. It is a no-op when
// metrics are disabled.
func (p *OTelProviders) WriteMetrics(path string) error {
	if p.Registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes and stops the providers
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

	return errors.Join(errs...)
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// PipelineMetrics are the batch counters recorded during a run
type PipelineMetrics struct {
	RowsLoaded    metric.Int64Counter
	RowsDropped   metric.Int64Counter
	YearsSkipped  metric.Int64Counter
	TablesWritten metric.Int64Counter
	StepFailures  metric.Int64Counter
	StepDuration  metric.Float64Histogram
}

// CreatePipelineMetrics registers the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsLoaded, err := meter.Int64Counter(
		"scorecard.rows.loaded",
		metric.WithDescription("Institution rows kept after the state filter"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"scorecard.rows.dropped",
		metric.WithDescription("Rows dropped while merging, by reason"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	yearsSkipped, err := meter.Int64Counter(
		"scorecard.years.skipped",
		metric.WithDescription("Extract years skipped for schema mismatch"),
		metric.WithUnit("{year}"),
	)
	if err != nil {
		return nil, err
	}

	tablesWritten, err := meter.Int64Counter(
		"scorecard.tables.written",
		metric.WithDescription("Aggregate tables persisted"),
		metric.WithUnit("{table}"),
	)
	if err != nil {
		return nil, err
	}

	stepFailures, err := meter.Int64Counter(
		"scorecard.step.failures",
		metric.WithDescription("Pipeline steps that failed"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"scorecard.step.duration",
		metric.WithDescription("Pipeline step duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsLoaded:    rowsLoaded,
		RowsDropped:   rowsDropped,
		YearsSkipped:  yearsSkipped,
		TablesWritten: tablesWritten,
		StepFailures:  stepFailures,
		StepDuration:  stepDuration,
	}, nil
}

// RecordStep records the duration and outcome of one pipeline step.
func (m *PipelineMetrics) RecordStep(ctx context.Context, stepID string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.StepFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step.id", stepID)))
	}
	m.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.String("status", status),
	))
}

// RecordLoad records the outcome of loading one dataset.
func (m *PipelineMetrics) RecordLoad(ctx context.Context, dataset string, rows, skippedYears int, dropped map[string]int) {
	if m == nil {
		return
	}
	ds := attribute.String("dataset", dataset)
	m.RowsLoaded.Add(ctx, int64(rows), metric.WithAttributes(ds))
	if skippedYears > 0 {
		m.YearsSkipped.Add(ctx, int64(skippedYears), metric.WithAttributes(ds))
	}
	for reason, n := range dropped {
		m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(ds, attribute.String("reason", reason)))
	}
}

// RecordTableWritten counts one persisted aggregate table.
func (m *PipelineMetrics) RecordTableWritten(ctx context.Context, store string) {
	if m == nil {
		return
	}
	m.TablesWritten.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}

// TraceIDFromContext extracts trace ID from context for logging correlation
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
