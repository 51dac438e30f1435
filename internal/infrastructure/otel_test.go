package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func initTestOTel(t *testing.T) *OTelProviders {
	t.Helper()
	providers, err := InitializeOTel(config.TelemetryConfig{Enabled: true, ServiceName: "abrsqol-test"}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, providers.Shutdown(ctx))
	})
	return providers
}

func TestOTelInitialization(t *testing.T) {
	providers := initTestOTel(t)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{Enabled: false}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Meter)

	// Instruments on the no-op meter must still be usable.
	metrics, err := CreateAppMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordJob(context.Background(), "file", time.Second, true, "")

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestTraceCorrelation(t *testing.T) {
	providers := initTestOTel(t)

	ctx, span := providers.Tracer.Start(context.Background(), "solve")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	require.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	logger.InfoContext(ctx, "inside span")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, traceID, entry["trace_id"])

	// A request ID takes precedence over the span trace ID.
	buf.Reset()
	logger.InfoContext(WithTraceID(ctx, "req-42"), "with request id")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["trace_id"])
}

func TestRecordError(t *testing.T) {
	providers := initTestOTel(t)

	ctx, span := providers.Tracer.Start(context.Background(), "failing")
	defer span.End()

	RecordError(ctx, assert.AnError)
	assert.True(t, span.IsRecording())

	// No span in context is a no-op.
	RecordError(context.Background(), assert.AnError)
}

func TestPrometheusEndpoint(t *testing.T) {
	providers := initTestOTel(t)

	metrics, err := CreateAppMetrics(providers.Meter)
	require.NoError(t, err)
	ctx := context.Background()
	metrics.RecordJob(ctx, "request", 250*time.Millisecond, true, "")
	metrics.RecordJob(ctx, "file", time.Second, false, "")
	metrics.RecordJob(ctx, "file", 10*time.Millisecond, false, "DIMENSION")

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "qol_jobs_total")
	assert.Contains(t, text, `status="capped"`)
	assert.Contains(t, text, `error_kind="DIMENSION"`)
	assert.Contains(t, text, "qol_job_duration_seconds")
	assert.Contains(t, text, "go_goroutines")
}

func TestRecordJobNilMetrics(t *testing.T) {
	var metrics *AppMetrics
	assert.NotPanics(t, func() {
		metrics.RecordJob(context.Background(), "file", time.Second, true, "")
	})
}
