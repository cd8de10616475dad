package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"scorecard/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: ServiceName}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.Registry)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	// noop instruments still work
	m, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)
	m.RecordStep(context.Background(), "load", time.Millisecond, nil)

	// nothing to write
	path := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, providers.WriteMetrics(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_MetricsTextfile(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		EnableMetrics:  true,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.Registry)

	m, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordLoad(ctx, "tuition", 120, 1, map[string]int{"territory": 3})
	m.RecordStep(ctx, "rollup.tuition", 20*time.Millisecond, nil)
	m.RecordStep(ctx, "cohort.black", 5*time.Millisecond, errors.New("boom"))
	m.RecordTableWritten(ctx, "memory")

	path := filepath.Join(t.TempDir(), "scorecard.prom")
	require.NoError(t, providers.WriteMetrics(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "scorecard_rows_loaded")
	assert.Contains(t, text, "scorecard_rows_dropped")
	assert.Contains(t, text, "scorecard_step_failures")
	assert.Contains(t, text, "scorecard_step_duration")
	assert.Contains(t, text, `dataset="tuition"`)
}

func TestInitializeOTel_Tracing(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   ServiceName,
		EnableTracing: true,
		TraceExporter: "none",
	}, quietLogger())
	require.NoError(t, err)
	// "none" leaves the noop tracer in place
	assert.Nil(t, providers.TracerProvider)

	_, err = InitializeOTel(&OTelConfig{
		ServiceName:   ServiceName,
		EnableTracing: true,
		TraceExporter: "otlp",
	}, quietLogger())
	assert.Error(t, err)
}

func TestNilPipelineMetrics(t *testing.T) {
	var m *PipelineMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStep(ctx, "x", time.Second, errors.New("x"))
		m.RecordLoad(ctx, "d", 1, 1, nil)
		m.RecordTableWritten(ctx, "csv")
	})
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestRecordError_AndTraceIDInLogs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "step")

	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
	require.NoError(t, err)
	logger.InfoContext(ctx, "inside span")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["trace_id"])
	assert.Equal(t, TraceIDFromContext(ctx), entries[0]["trace_id"])

	RecordError(ctx, errors.New("degenerate column"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "degenerate column", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)

	// a context without a recording span is ignored
	assert.NotPanics(t, func() { RecordError(context.Background(), errors.New("x")) })
}
