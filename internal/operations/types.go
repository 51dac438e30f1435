package operations

import (
	"errors"
	"time"

	"abrsqol/internal/qol"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ParseJobStatus accepts the lower-case status names and "" for any.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case "", JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobExists     = errors.New("job already exists")
	ErrJobFinished   = errors.New("job already finished")
	ErrQueueFull     = errors.New("job queue is full")
	ErrQueueStopped  = errors.New("job queue is stopped")
	ErrInvalidStatus = errors.New("unknown job status")
)

// Job is an inversion submitted for background execution.
type Job struct {
	ID          string      `json:"id"`
	TraceID     string      `json:"trace_id,omitempty"`
	Status      JobStatus   `json:"status"`
	Progress    int         `json:"progress"`
	Message     string      `json:"message,omitempty"`
	Error       string      `json:"error,omitempty"`
	Locations   int         `json:"locations"`
	Theta       int         `json:"theta"`
	IDs         []string    `json:"ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Result      *qol.Result `json:"result,omitempty"`
}

// JobRequest carries everything a worker needs to run one inversion.
type JobRequest struct {
	Inputs  qol.Inputs
	Params  qol.Params
	IDs     []string
	TraceID string
}

// JobFilter for querying jobs
type JobFilter struct {
	Status JobStatus
	Since  time.Time
	Limit  int
}

// QueueStats is a point-in-time view of the queue.
type QueueStats struct {
	Workers  int `json:"workers"`
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
	Active   int `json:"active"`
}
