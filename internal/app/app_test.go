package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/config"
	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/shared/testutil"
	api "abrsqol/pkg/contracts/api/v1"
	"abrsqol/pkg/contracts/events"
)

const invertBody = `{"columns": {
	"w":   [1.0, 1.1, 0.95, 1.2, 0.9],
	"p_H": [1.0, 1.3, 0.8, 1.5, 0.7],
	"P_t": [1.0, 1.02, 0.99, 1.01, 0.98],
	"p_n": [1.0, 1.1, 0.9, 1.2, 0.85],
	"L":   [1000, 1500, 800, 2000, 600],
	"L_b": [1100, 1400, 900, 1800, 700]
}}`

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := testutil.NewTestLogger(t)

	app, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		app.stopJobs(context.Background())
		app.OTelProviders.Shutdown(context.Background())
	})
	return app
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication(t *testing.T) {
	app := newTestApp(t, nil)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.QoLService)
	assert.NotNil(t, app.HealthService)
	assert.NotNil(t, app.AppMetrics)
	assert.NotNil(t, app.StreamMetrics)
	assert.NotNil(t, app.JobQueue)
	assert.Equal(t, ":0", app.Server.Addr)
	assert.Equal(t, app.Config.Server.WriteTimeout, app.Server.WriteTimeout)
}

func TestApplication_Routes(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK},
		{name: "live", method: http.MethodGet, path: "/livez", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK},
		{name: "defaults", method: http.MethodGet, path: "/api/v1/qol/defaults", wantStatus: http.StatusOK},
		{name: "invert", method: http.MethodPost, path: "/api/v1/qol/invert", body: invertBody, wantStatus: http.StatusOK},
		{name: "submit job", method: http.MethodPost, path: "/api/v1/jobs", body: invertBody, wantStatus: http.StatusAccepted},
		{name: "list jobs", method: http.MethodGet, path: "/api/v1/jobs", wantStatus: http.StatusOK},
		{name: "unknown job", method: http.MethodGet, path: "/api/v1/jobs/nope", wantStatus: http.StatusNotFound},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/api/v1/qol/invert", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, app.Router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_NotFoundProblem(t *testing.T) {
	app := newTestApp(t, nil)

	rec := serve(t, app.Router, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.TypeNotFound, problem["type"])
}

func TestApplication_MetricsAfterInvert(t *testing.T) {
	app := newTestApp(t, nil)

	rec := serve(t, app.Router, http.MethodPost, "/api/v1/qol/invert", invertBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.InvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDeltaSlice(t, testutil.FiveLocationsQoL, resp.QoL, 1e-8)

	metrics := serve(t, app.Router, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metrics, "qol_jobs_total")
	assert.Contains(t, metrics, "http_requests_total")
	assert.Contains(t, metrics, `route="/api/v1/qol/invert"`)
}

func TestApplication_Jobs(t *testing.T) {
	app := newTestApp(t, nil)

	rec := serve(t, app.Router, http.MethodPost, "/api/v1/jobs", invertBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job api.JobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	location := rec.Header().Get("Location")
	assert.Equal(t, "/api/v1/jobs/"+job.ID, location)

	require.Eventually(t, func() bool {
		rec := serve(t, app.Router, http.MethodGet, location, "")
		if rec.Code != http.StatusOK {
			return false
		}
		var polled api.JobResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &polled); err != nil {
			return false
		}
		job = polled
		return job.Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, job.Result)
	assert.InDeltaSlice(t, testutil.FiveLocationsQoL, job.Result.QoL, 1e-8)

	metrics := serve(t, app.Router, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metrics, "qol_jobs_queued")
	assert.Contains(t, metrics, "qol_jobs_running")
}

func TestApplication_TelemetryDisabled(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.Telemetry.Enabled = false })

	rec := serve(t, app.Router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, app.Router, http.MethodPost, "/api/v1/qol/invert", invertBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_RateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}
	})

	assert.Equal(t, http.StatusOK, serve(t, app.Router, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(t, app.Router, http.MethodGet, "/healthz", "").Code)
}

func TestApplication_StartStop(t *testing.T) {
	app := newTestApp(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))

	base := "http://" + app.Addr()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("stream", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+app.Addr()+"/api/v1/qol/stream", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(invertBody)))

		var last events.WebSocketMessage
		for {
			conn.SetReadDeadline(time.Now().Add(10 * time.Second))
			var msg events.WebSocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			last = msg
		}
		assert.Equal(t, events.MessageTypeResult, last.Type)
	})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, app.Stop(stopCtx))

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestApplication_StartPortInUse(t *testing.T) {
	first := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, first.Start(ctx, cancel))
	defer first.Stop(context.Background())

	second := newTestApp(t, nil)
	second.Server.Addr = first.Addr()
	assert.Error(t, second.Start(ctx, cancel))
}
