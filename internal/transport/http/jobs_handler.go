package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/middleware"
	"abrsqol/internal/operations"
	api "abrsqol/pkg/contracts/api/v1"
)

const (
	// maxListLimit caps GET /api/v1/jobs?limit=.
	maxListLimit = 500
	// queueRetryAfter is advertised when the queue refuses a submission.
	queueRetryAfter = 5 * time.Second
)

// JobQueue is the part of operations.JobQueue the handler uses.
type JobQueue interface {
	Enqueue(req operations.JobRequest) (*operations.Job, error)
	GetJob(id string) (*operations.Job, error)
	CancelJob(id string) (*operations.Job, error)
	ListJobs(filter operations.JobFilter) ([]*operations.Job, error)
}

// JobsHandler serves asynchronous inversions.
type JobsHandler struct {
	queue        JobQueue
	service      QoLService
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewJobsHandler creates a new jobs handler. service supplies the default
// model parameters.
func NewJobsHandler(queue JobQueue, service QoLService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *JobsHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &JobsHandler{
		queue:        queue,
		service:      service,
		validate:     newValidator(),
		logger:       logger.With(slog.String("component", "jobs_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the job routes
func (h *JobsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(middleware.RequireJSON).Post("/", h.Submit)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	return r
}

// Submit handles POST /api/v1/jobs
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	var req api.InvertRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, decodeError(err))
		return
	}
	if err := validateRequest(h.validate, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	in, ids, err := buildInputs(&req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Reject what the solver would reject so a bad request never becomes a
	// failed job.
	params := resolveParams(h.service.Defaults(), req.Params)
	if err := params.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	job, err := h.queue.Enqueue(operations.JobRequest{
		Inputs:  in,
		Params:  params,
		IDs:     ids,
		TraceID: reqID,
	})
	if err != nil {
		if errors.Is(err, operations.ErrQueueFull) || errors.Is(err, operations.ErrQueueStopped) {
			h.errorHandler.HandleError(w, r, apierrors.ServiceUnavailable(err.Error(), queueRetryAfter))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "inversion job accepted",
		slog.String("request_id", reqID),
		slog.String("job_id", job.ID),
		slog.Int("locations", job.Locations),
		slog.Int("theta", job.Theta))

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+job.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, toJobResponse(job))
}

// List handles GET /api/v1/jobs?status=&limit=
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := operations.ParseJobStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("status", err.Error()))
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "must be an integer between 1 and "+strconv.Itoa(maxListLimit)))
			return
		}
		limit = n
	}

	jobs, err := h.queue.ListJobs(operations.JobFilter{Status: status, Limit: limit})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.JobListResponse{Jobs: make([]api.JobResponse, len(jobs)), Count: len(jobs)}
	for i, job := range jobs {
		resp.Jobs[i] = toJobResponse(job)
	}
	render.JSON(w, r, resp)
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, jobError(err))
		return
	}
	render.JSON(w, r, toJobResponse(job))
}

// Cancel handles DELETE /api/v1/jobs/{id}
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.CancelJob(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, jobError(err))
		return
	}
	render.JSON(w, r, toJobResponse(job))
}

func jobError(err error) error {
	switch {
	case errors.Is(err, operations.ErrJobNotFound):
		return apierrors.NotFoundError("job")
	case errors.Is(err, operations.ErrJobFinished):
		return apierrors.ConflictError(err.Error())
	}
	return err
}

func toJobResponse(job *operations.Job) api.JobResponse {
	resp := api.JobResponse{
		ID:          job.ID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Message:     job.Message,
		Error:       job.Error,
		Locations:   job.Locations,
		Theta:       job.Theta,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		TraceID:     job.TraceID,
	}
	if job.Result != nil {
		result := toResponse(job.Result, job.IDs, job.TraceID)
		resp.Result = &result
	}
	return resp
}
