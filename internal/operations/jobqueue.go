package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"abrsqol/internal/config"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/qol"
)

// Solver runs one inversion. services.QoLService satisfies it.
type Solver interface {
	Solve(ctx context.Context, in qol.Inputs, params qol.Params, observer qol.Observer) (*qol.Result, error)
}

// task pairs a stored job with the inputs that are never persisted.
type task struct {
	id  string
	req JobRequest
}

// JobQueue runs inversions on a fixed pool of workers. All job state
// changes go through update so a cancellation can never be overwritten by
// a late progress report.
type JobQueue struct {
	mu        sync.Mutex
	jobs      chan task
	workers   int
	retention time.Duration
	wg        sync.WaitGroup
	store     JobStore
	solver    Solver
	logger    *slog.Logger
	shutdown  chan struct{}
	stopOnce  sync.Once
	active    map[string]context.CancelFunc
}

// NewJobQueue creates a new job queue. A nil store uses a MemoryJobStore.
func NewJobQueue(cfg config.JobsConfig, store JobStore, solver Solver, logger *slog.Logger) *JobQueue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = workers * 2
	}
	if store == nil {
		store = NewMemoryJobStore()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &JobQueue{
		jobs:      make(chan task, size),
		workers:   workers,
		retention: cfg.Retention,
		store:     store,
		solver:    solver,
		logger:    logger.With(slog.String("component", "jobqueue")),
		shutdown:  make(chan struct{}),
		active:    make(map[string]context.CancelFunc),
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.InfoContext(ctx, "starting job queue",
		slog.Int("workers", q.workers),
		slog.Int("capacity", cap(q.jobs)))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	if cleaner, ok := q.store.(interface {
		CleanupOldJobs(time.Duration) (int, error)
	}); ok && q.retention > 0 {
		q.wg.Add(1)
		go q.janitor(ctx, cleaner.CleanupOldJobs)
	}
}

// Stop stops accepting jobs and waits for the workers. Running jobs are
// cancelled when timeout expires; queued jobs are marked cancelled.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded, cancelling running jobs")
		q.mu.Lock()
		for _, cancel := range q.active {
			cancel()
		}
		q.mu.Unlock()
		<-done
		err = fmt.Errorf("timeout waiting for workers to finish")
	}

	for {
		select {
		case t := <-q.jobs:
			q.update(t.id, func(j *Job) {
				j.Status = JobStatusCancelled
				j.Message = "queue stopped before the job started"
				now := time.Now()
				j.CompletedAt = &now
			})
		default:
			return err
		}
	}
}

func (q *JobQueue) stopped() bool {
	select {
	case <-q.shutdown:
		return true
	default:
		return false
	}
}

// Enqueue stores a pending job for req and hands it to the workers.
func (q *JobQueue) Enqueue(req JobRequest) (*Job, error) {
	if q.stopped() {
		return nil, ErrQueueStopped
	}

	if req.TraceID == "" {
		req.TraceID = infrastructure.GenerateTraceID()
	}
	locations, theta := req.Inputs.Dims()
	job := &Job{
		ID:        uuid.NewString(),
		TraceID:   req.TraceID,
		Status:    JobStatusPending,
		Message:   "waiting for a worker",
		Locations: locations,
		Theta:     theta,
		IDs:       req.IDs,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.jobs <- task{id: job.ID, req: req}:
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("trace_id", req.TraceID),
			slog.Int("locations", locations),
			slog.Int("theta", theta))
		return job, nil
	default:
		q.update(job.ID, func(j *Job) {
			j.Status = JobStatusFailed
			j.Error = ErrQueueFull.Error()
			now := time.Now()
			j.CompletedAt = &now
		})
		return nil, ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// CancelJob cancels a pending or running job. Finished jobs return
// ErrJobFinished.
func (q *JobQueue) CancelJob(id string) (*Job, error) {
	job, err := q.update(id, func(j *Job) {
		j.Status = JobStatusCancelled
		j.Message = "cancelled by request"
		now := time.Now()
		j.CompletedAt = &now
	})
	if err != nil {
		return job, err
	}

	q.mu.Lock()
	if cancel, ok := q.active[id]; ok {
		cancel()
	}
	q.mu.Unlock()

	q.logger.Info("job cancelled", slog.String("job_id", id))
	return job, nil
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// Stats returns queue statistics
func (q *JobQueue) Stats() QueueStats {
	q.mu.Lock()
	active := len(q.active)
	q.mu.Unlock()

	return QueueStats{
		Workers:  q.workers,
		Queued:   len(q.jobs),
		Capacity: cap(q.jobs),
		Active:   active,
	}
}

// RegisterMetrics exposes queue depth and running jobs as gauges.
func (q *JobQueue) RegisterMetrics(meter metric.Meter) error {
	queued, err := meter.Int64ObservableGauge("qol_jobs_queued",
		metric.WithDescription("Inversion jobs waiting for a worker"))
	if err != nil {
		return fmt.Errorf("failed to create queued gauge: %w", err)
	}
	running, err := meter.Int64ObservableGauge("qol_jobs_running",
		metric.WithDescription("Inversion jobs currently solving"))
	if err != nil {
		return fmt.Errorf("failed to create running gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := q.Stats()
		o.ObserveInt64(queued, int64(stats.Queued))
		o.ObserveInt64(running, int64(stats.Active))
		return nil
	}, queued, running)
	return err
}

// update applies fn to the stored job unless the job already finished.
// It returns the job as stored afterwards.
func (q *JobQueue) update(id string, fn func(*Job)) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.Status)
	}
	fn(job)
	if err := q.store.UpdateJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// worker processes jobs from the queue
func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case t := <-q.jobs:
			q.processJob(ctx, t, logger)
		}
	}
}

// processJob executes a single job
func (q *JobQueue) processJob(ctx context.Context, t task, logger *slog.Logger) {
	ctx = infrastructure.WithTraceID(ctx, t.req.TraceID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger = logger.With(slog.String("job_id", t.id))

	// Registered before the job turns running so CancelJob always finds it.
	q.mu.Lock()
	q.active[t.id] = cancel
	q.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "job processing panicked", slog.Any("panic", r))
			q.finish(t.id, nil, fmt.Errorf("job processing panicked: %v", r))
		}
		q.mu.Lock()
		delete(q.active, t.id)
		q.mu.Unlock()
	}()

	if _, err := q.update(t.id, func(j *Job) {
		j.Status = JobStatusRunning
		j.Message = "solving"
		now := time.Now()
		j.StartedAt = &now
	}); err != nil {
		logger.InfoContext(ctx, "skipping job", slog.String("reason", err.Error()))
		return
	}

	logger.InfoContext(ctx, "processing job started")
	start := time.Now()

	observer := newJobObserver(q, t.id, t.req.Inputs, t.req.Params.MaxIter)
	res, err := q.solver.Solve(ctx, t.req.Inputs, t.req.Params, observer)
	q.finish(t.id, res, err)

	attrs := []any{slog.Duration("duration", time.Since(start))}
	switch {
	case err == nil:
		logger.InfoContext(ctx, "processing job completed", append(attrs, slog.Bool("converged", res.Converged()))...)
	case errors.Is(err, context.Canceled):
		logger.InfoContext(ctx, "processing job cancelled", attrs...)
	default:
		infrastructure.WithError(logger, err).ErrorContext(ctx, "job failed", attrs...)
	}
}

// finish records the outcome. A job cancelled meanwhile stays cancelled.
func (q *JobQueue) finish(id string, res *qol.Result, err error) {
	_, uerr := q.update(id, func(j *Job) {
		now := time.Now()
		j.CompletedAt = &now
		switch {
		case errors.Is(err, context.Canceled):
			j.Status = JobStatusCancelled
			j.Message = "cancelled while solving"
			return
		case err != nil:
			j.Status = JobStatusFailed
			j.Error = err.Error()
			j.Message = "inversion failed"
			return
		}
		j.Status = JobStatusCompleted
		j.Progress = 100
		j.Result = res
		j.Message = "converged"
		if !res.Converged() {
			j.Message = "iteration cap reached before convergence"
		}
	})
	if uerr != nil && !errors.Is(uerr, ErrJobFinished) {
		q.logger.Error("failed to record job outcome",
			slog.String("job_id", id),
			slog.String("error", uerr.Error()))
	}
}

func (q *JobQueue) janitor(ctx context.Context, cleanup func(time.Duration) (int, error)) {
	defer q.wg.Done()

	interval := q.retention
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case <-ticker.C:
			n, err := cleanup(q.retention)
			if err != nil {
				q.logger.Warn("job cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				q.logger.Debug("expired jobs removed", slog.Int("count", n))
			}
		}
	}
}

// jobObserver turns solver iterations into a monotone percentage. A column
// counts as MaxIter iterations once it completes.
type jobObserver struct {
	q       *JobQueue
	id      string
	maxIter int

	mu    sync.Mutex
	iters []int
	last  int
}

func newJobObserver(q *JobQueue, id string, in qol.Inputs, maxIter int) *jobObserver {
	_, theta := in.Dims()
	return &jobObserver{q: q, id: id, maxIter: maxIter, iters: make([]int, theta)}
}

func (o *jobObserver) OnIteration(ctx context.Context, p qol.Progress) {
	o.record(p.Column, p.Iteration, fmt.Sprintf("column %d: iteration %d, objective %.3g", p.Column, p.Iteration, p.Objective))
}

func (o *jobObserver) OnComplete(ctx context.Context, column int, res qol.ColumnResult) {
	o.record(column, o.maxIter, fmt.Sprintf("column %d finished after %d iterations", column, res.Iterations))
}

func (o *jobObserver) record(column, iteration int, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if column < 0 || column >= len(o.iters) || o.maxIter <= 0 {
		return
	}
	o.iters[column] = iteration

	total := 0
	for _, it := range o.iters {
		total += it
	}
	pct := total * 100 / (o.maxIter * len(o.iters))
	if pct > 99 {
		pct = 99
	}
	if pct <= o.last {
		return
	}
	o.last = pct
	o.q.update(o.id, func(j *Job) {
		j.Progress = pct
		j.Message = message
	})
}
