package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"abrsqol/internal/operations"
	"abrsqol/internal/qol"
)

// QueueStatter is the part of operations.JobQueue readiness looks at.
type QueueStatter interface {
	Stats() operations.QueueStats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	startTime time.Time
	logger    *slog.Logger
	jobs      QueueStatter
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. A nil logger uses slog.Default.
func NewHealthService(version, buildTime string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// SetJobQueue adds the job queue to readiness checks.
func (hs *HealthService) SetJobQueue(q QueueStatter) {
	hs.jobs = q
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck runs a three-location solve whose answer is known and
// reports not_ready if the solver does not reproduce it.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"solver": hs.checkSolverHealth(ctx),
		},
	}
	if hs.jobs != nil {
		status.Services["jobs"] = hs.checkJobQueue()
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("message", sh.Message))
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// checkJobQueue is not ready while the queue cannot take another job.
func (hs *HealthService) checkJobQueue() ServiceHealth {
	stats := hs.jobs.Stats()
	msg := fmt.Sprintf("%d queued of %d, %d running on %d workers",
		stats.Queued, stats.Capacity, stats.Active, stats.Workers)
	if stats.Capacity > 0 && stats.Queued >= stats.Capacity {
		return ServiceHealth{Status: "not_ready", Message: "job queue full: " + msg}
	}
	return ServiceHealth{Status: "ready", Message: msg}
}

// checkSolverHealth solves identical locations, which must converge to all
// ones in a single pass.
func (hs *HealthService) checkSolverHealth(ctx context.Context) ServiceHealth {
	same := []float64{1, 1, 1}
	q, err := qol.Invert(ctx, qol.VectorInputs(same, same, same, same, same, same), qol.DefaultParams(),
		qol.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("solver error: %v", err),
		}
	}
	for i, v := range q {
		if math.Abs(v-1) > 1e-12 {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("solver returned %g at location %d, want 1", v, i),
			}
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "solver is healthy",
		Uptime:  time.Since(hs.startTime).String(),
	}
}
