package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/services"
	"abrsqol/internal/shared/testutil"
)

type notReadyService struct {
	*services.HealthService
}

func (notReadyService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "not_ready", Timestamp: time.Now()}
}

func TestHealthHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hs := services.NewHealthService("1.0.0-test", "2026-01-01", logger)
	h := NewHealthHandler(hs, logger)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantField  string
		wantValue  any
	}{
		{name: "health", handler: h.HealthCheck, wantStatus: http.StatusOK, wantField: "status", wantValue: "ok"},
		{name: "ready", handler: h.ReadinessCheck, wantStatus: http.StatusOK, wantField: "status", wantValue: "ready"},
		{name: "live", handler: h.LivenessCheck, wantStatus: http.StatusOK, wantField: "status", wantValue: "alive"},
		{name: "version", handler: h.Version, wantStatus: http.StatusOK, wantField: "api_version", wantValue: "v1"},
		{
			name:       "not ready",
			handler:    NewHealthHandler(notReadyService{hs}, logger).ReadinessCheck,
			wantStatus: http.StatusServiceUnavailable,
			wantField:  "status",
			wantValue:  "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantValue, body[tt.wantField])
		})
	}
}
