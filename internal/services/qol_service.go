package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"abrsqol/internal/config"
	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/exporter"
	"abrsqol/internal/files"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

// Job sources reported in metrics.
const (
	SourceFile    = "file"
	SourceRequest = "request"
)

// FileJob describes one table-to-table inversion.
type FileJob struct {
	InputPath  string
	Sheet      string
	OutputPath string // empty skips the export
	Columns    table.Columns
	Params     qol.Params
}

// FileResult is the outcome of a FileJob.
type FileResult struct {
	Table  *table.Table // input table with the QoL columns appended
	Result *qol.Result
}

// DirJob inverts every table found directly inside InputDir. Results are
// written to OutputDir with ResultSuffix before the extension.
type DirJob struct {
	InputDir  string
	OutputDir string
	Sheet     string
	Columns   table.Columns
	Params    qol.Params
}

// ResultSuffix is appended to input names for batch outputs.
const ResultSuffix = "_qol"

// DirResult is the outcome for one table of a DirJob. Err is set when that
// table failed; the other tables are still processed.
type DirResult struct {
	InputPath  string
	OutputPath string
	Result     *qol.Result
	Err        error
}

// QoLService runs inversions for the CLI and the HTTP server: it loads and
// extracts tables, bounds each solve by the configured timeout and wires the
// log and metrics observers.
type QoLService struct {
	cfg      *config.Config
	loader   *table.Loader
	exporter *exporter.Exporter
	metrics  *infrastructure.AppMetrics
	solver   *qol.MetricsObserver
	tracer   trace.Tracer
	logger   *slog.Logger
	base     *slog.Logger // injected logger; the solver adds its own component
}

// NewQoLService creates a QoLService. A nil meter disables metrics and a nil
// logger uses the global logger.
func NewQoLService(cfg *config.Config, logger *slog.Logger, meter metric.Meter) (*QoLService, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(infrastructure.InstrumentationName)
	}

	appMetrics, err := infrastructure.CreateAppMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create app metrics: %w", err)
	}
	solverMetrics, err := qol.NewMetricsObserver(meter)
	if err != nil {
		return nil, fmt.Errorf("create solver metrics: %w", err)
	}

	base := logger
	logger = infrastructure.WithComponent(logger, "qol_service")
	logger.Debug("QoLService initialized",
		slog.Duration("timeout", cfg.Solver.Timeout),
		slog.Int("max_concurrency", cfg.Solver.MaxConcurrency))

	return &QoLService{
		cfg:      cfg,
		loader:   table.NewLoader(logger),
		exporter: exporter.NewExporter(logger),
		metrics:  appMetrics,
		solver:   solverMetrics,
		tracer:   otel.Tracer(infrastructure.InstrumentationName),
		logger:   logger,
		base:     base,
	}, nil
}

// Defaults returns the parameters configured for this service.
func (s *QoLService) Defaults() qol.Params {
	return s.cfg.ModelParams()
}

// Columns returns the configured column selectors.
func (s *QoLService) Columns() table.Columns {
	return s.cfg.TableColumns()
}

// Solve inverts in with params. observer, which may be nil, receives
// progress alongside the service's own observers.
func (s *QoLService) Solve(ctx context.Context, in qol.Inputs, params qol.Params, observer qol.Observer) (*qol.Result, error) {
	start := time.Now()
	res, err := s.solve(ctx, in, params, observer)
	s.record(ctx, SourceRequest, start, res, err)
	return res, err
}

// SolveTable extracts inputs from t using cols and inverts them.
func (s *QoLService) SolveTable(ctx context.Context, t *table.Table, cols table.Columns, params qol.Params, observer qol.Observer) (*qol.Result, error) {
	start := time.Now()
	in, err := table.Extract(t, cols)
	if err != nil {
		s.record(ctx, SourceRequest, start, nil, err)
		return nil, fmt.Errorf("extract inputs: %w", err)
	}
	res, err := s.solve(ctx, in, params, observer)
	s.record(ctx, SourceRequest, start, res, err)
	return res, err
}

// InvertFile loads job.InputPath, solves it and, when job.OutputPath is
// set, writes the table with the results appended.
func (s *QoLService) InvertFile(ctx context.Context, job FileJob) (*FileResult, error) {
	start := time.Now()
	out, err := s.invertFile(ctx, job)
	var res *qol.Result
	if out != nil {
		res = out.Result
	}
	s.record(ctx, SourceFile, start, res, err)
	return out, err
}

// InvertDir runs InvertFile for every table in job.InputDir. A failing table
// is reported in its DirResult; only discovery errors and cancellation stop
// the batch.
func (s *QoLService) InvertDir(ctx context.Context, job DirJob) ([]DirResult, error) {
	if job.InputDir == "" {
		return nil, ErrNoInput
	}
	tables, err := files.NewDiscovery("").FindTables(job.InputDir)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables in %s", ErrNoInput, job.InputDir)
	}

	s.logger.InfoContext(ctx, "batch inversion started",
		slog.String("input_dir", job.InputDir),
		slog.String("output_dir", job.OutputDir),
		slog.Int("tables", len(tables)))

	results := make([]DirResult, 0, len(tables))
	for _, f := range tables {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := DirResult{
			InputPath:  f.Path,
			OutputPath: files.OutputPath(job.OutputDir, f.Name, ResultSuffix),
		}
		out, err := s.InvertFile(ctx, FileJob{
			InputPath:  r.InputPath,
			Sheet:      job.Sheet,
			OutputPath: r.OutputPath,
			Columns:    job.Columns,
			Params:     job.Params,
		})
		if err != nil {
			r.Err = err
			s.logger.WarnContext(ctx, "table failed",
				slog.String("input", f.Path),
				slog.String("error", err.Error()))
		} else {
			r.Result = out.Result
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *QoLService) invertFile(ctx context.Context, job FileJob) (*FileResult, error) {
	if job.InputPath == "" {
		return nil, ErrNoInput
	}

	ctx, span := s.tracer.Start(ctx, "qol.InvertFile",
		trace.WithAttributes(attribute.String("qol.input", job.InputPath)))
	defer span.End()

	t, err := s.loader.Load(ctx, job.InputPath, job.Sheet)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("load %s: %w", job.InputPath, err)
	}

	in, err := table.Extract(t, job.Columns)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("extract inputs: %w", err)
	}

	res, err := s.solve(ctx, in, job.Params, nil)
	if err != nil {
		return nil, err
	}

	withResults, err := exporter.WithResults(t, res)
	if err != nil {
		return nil, fmt.Errorf("attach results: %w", err)
	}

	if job.OutputPath != "" {
		if err := s.exporter.Export(ctx, job.OutputPath, t, res); err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
	}
	return &FileResult{Table: withResults, Result: res}, nil
}

func (s *QoLService) solve(ctx context.Context, in qol.Inputs, params qol.Params, observer qol.Observer) (*qol.Result, error) {
	if timeout := s.cfg.Solver.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := s.base
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}

	observers := qol.MultiObserver{
		qol.NewLogObserver(logger, s.cfg.Solver.LogEvery),
		s.solver,
	}
	if observer != nil {
		observers = append(observers, observer)
	}

	inv, err := qol.NewInverter(params,
		qol.WithLogger(logger),
		qol.WithObserver(observers),
		qol.WithMaxConcurrency(s.cfg.Solver.MaxConcurrency),
	)
	if err != nil {
		return nil, err
	}

	res, err := inv.Solve(ctx, in)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrSolveTimeout, s.cfg.Solver.Timeout, err)
		}
		return nil, err
	}
	if len(res.Columns) == 0 {
		return nil, ErrEmptyResult
	}
	return res, nil
}

func (s *QoLService) record(ctx context.Context, source string, start time.Time, res *qol.Result, err error) {
	errKind := ""
	if err != nil {
		errKind = errorKind(err)
	}
	s.metrics.RecordJob(ctx, source, time.Since(start), res.Converged(), errKind)
}

// errorKind labels err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	}
	var appErr *apierrors.AppError
	if errors.As(apierrors.Classify(err), &appErr) {
		return string(appErr.Type)
	}
	return "INTERNAL"
}
