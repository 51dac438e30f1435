package qol

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tracerName = "abrsqol/internal/qol"

// Inverter solves the quality-of-life fixed point for a fixed parameter set.
// An Inverter is safe for concurrent use once constructed.
type Inverter struct {
	params         Params
	logger         *slog.Logger
	observer       Observer
	initialGuess   *mat.Dense
	maxConcurrency int
	tracer         trace.Tracer
}

// Option configures an Inverter.
type Option func(*Inverter)

// WithLogger sets the logger used for solve-level messages.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Inverter) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(inv *Inverter) {
		if o != nil {
			inv.observer = o
		}
	}
}

// WithInitialGuess starts iteration from guess instead of all ones. guess
// must be J×1 (shared by every column) or J×Theta.
func WithInitialGuess(guess *mat.Dense) Option {
	return func(inv *Inverter) {
		inv.initialGuess = guess
	}
}

// WithMaxConcurrency bounds the number of columns solved at once.
func WithMaxConcurrency(n int) Option {
	return func(inv *Inverter) {
		if n > 0 {
			inv.maxConcurrency = n
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(inv *Inverter) {
		if t != nil {
			inv.tracer = t
		}
	}
}

// NewInverter validates params and returns a ready Inverter.
func NewInverter(params Params, opts ...Option) (*Inverter, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("validate params: %w", err)
	}

	inv := &Inverter{
		params:         params,
		logger:         slog.Default(),
		observer:       noopObserver{},
		maxConcurrency: runtime.GOMAXPROCS(0),
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Params returns the parameters the Inverter was built with.
func (inv *Inverter) Params() Params {
	return inv.params
}

// Invert solves in with params and returns the first column's relative QoL.
func Invert(ctx context.Context, in Inputs, params Params, opts ...Option) ([]float64, error) {
	inv, err := NewInverter(params, opts...)
	if err != nil {
		return nil, err
	}
	res, err := inv.Solve(ctx, in)
	if err != nil {
		return nil, err
	}
	return res.QoL(), nil
}

// Solve validates in and solves every Theta column. Shape errors are
// reported before any computation. Hitting MaxIter is not an error.
func (inv *Inverter) Solve(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	ctx, span := inv.tracer.Start(ctx, "qol.Solve")
	defer span.End()

	pr, err := prepare(in, inv.params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid inputs")
		inv.logger.ErrorContext(ctx, "input validation failed", "error", err)
		return nil, fmt.Errorf("prepare inputs: %w", err)
	}

	guesses, err := inv.guesses(pr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid initial guess")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("qol.locations", pr.locations),
		attribute.Int("qol.theta", pr.theta),
		attribute.Int("qol.maxiter", inv.params.MaxIter),
	)
	inv.logger.InfoContext(ctx, "begin loop to solve for quality of life measure",
		"locations", pr.locations,
		"theta", pr.theta,
		"maxiter", inv.params.MaxIter,
		"tolerance", inv.params.Tolerance,
	)

	columns := make([]ColumnResult, pr.theta)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inv.maxConcurrency)
	for t := 0; t < pr.theta; t++ {
		g.Go(func() error {
			res, err := inv.solveColumn(gctx, pr, t, guesses[t])
			if err != nil {
				return err
			}
			columns[t] = res
			inv.observer.OnComplete(gctx, t, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve failed")
		inv.logger.ErrorContext(ctx, "solve failed", "error", err)
		return nil, fmt.Errorf("solve: %w", err)
	}

	res := &Result{
		Columns:  columns,
		Params:   inv.params,
		Duration: time.Since(start),
	}
	span.SetAttributes(attribute.Bool("qol.converged", res.Converged()))
	inv.logger.InfoContext(ctx, "quality of life measure generated",
		"duration", res.Duration,
		"converged", res.Converged(),
	)
	return res, nil
}

// guesses returns the starting A_hat for each column.
func (inv *Inverter) guesses(pr *problem) ([][]float64, error) {
	out := make([][]float64, pr.theta)
	if inv.initialGuess == nil {
		for t := range out {
			ones := make([]float64, pr.locations)
			for i := range ones {
				ones[i] = 1
			}
			out[t] = ones
		}
		return out, nil
	}

	r, c := inv.initialGuess.Dims()
	if r != pr.locations || (c != 1 && c != pr.theta) {
		return nil, &DimensionMismatchError{Axis: "rows", Shapes: []Shape{
			{Name: "initial_guess", Rows: r, Cols: c},
			{Name: "w", Rows: pr.locations, Cols: pr.theta},
		}}
	}
	if err := eachCell("initial_guess", inv.initialGuess, func(x float64) string {
		if x <= 0 {
			return "must be positive"
		}
		return ""
	}); err != nil {
		return nil, err
	}
	for t := range out {
		out[t] = broadcastCol(inv.initialGuess, t)
	}
	return out, nil
}

// solveColumn runs the damped fixed-point iteration for column t.
func (inv *Inverter) solveColumn(ctx context.Context, pr *problem, t int, guess []float64) (ColumnResult, error) {
	ctx, span := inv.tracer.Start(ctx, "qol.solveColumn",
		trace.WithAttributes(attribute.Int("qol.column", t)))
	defer span.End()

	var (
		j     = pr.locations
		gamma = inv.params.Gamma
		conv  = inv.params.Conv
		ties  = pr.tiesFactor
		w     = pr.w[t]
		wHat  = pr.wHat[t]
		lHat  = pr.lHat[t]
		lb    = pr.lb[t]
	)
	p, pHat := pr.prices(t)

	a := make([]float64, j)
	copy(a, guess)
	aNew := make([]float64, j)
	nom := make([]float64, j)
	lbPsi := make([]float64, j)

	objective := initialObjective
	iter := 0
	for objective > inv.params.Tolerance && iter < inv.params.MaxIter {
		if err := ctx.Err(); err != nil {
			return ColumnResult{}, fmt.Errorf("column %d: %w", t, err)
		}

		// (1) Model-consistent aggregation shares.
		for i := 0; i < j; i++ {
			nom[i] = math.Pow(a[i]*w[i]/p[i], gamma)
		}
		nomSum := floats.Sum(nom)
		for i := 0; i < j; i++ {
			psi := 1 / (ties*nom[i]/nomSum + 1)
			lbPsi[i] = lb[i] * psi
		}

		// (2)-(3) Effective labour relative to the first location.
		total := floats.Sum(lbPsi)
		ref := total + lbPsi[0]*ties

		// (4)-(5) Updated QoL and its mean absolute deviation.
		objective = 0
		for i := 0; i < j; i++ {
			effHat := (total + lbPsi[i]*ties) / ref
			aNew[i] = pHat[i] * (1 / wHat[i]) * math.Pow(lHat[i]/effHat, 1/gamma)
			objective += math.Abs(aNew[i] - a[i])
		}
		objective /= float64(j)
		iter++

		if math.IsNaN(objective) || math.IsInf(objective, 0) {
			err := &NumericalError{Column: t, Iteration: iter, Objective: objective}
			span.RecordError(err)
			return ColumnResult{}, err
		}

		// (6) Damped update.
		for i := 0; i < j; i++ {
			a[i] = conv*aNew[i] + (1-conv)*a[i]
		}

		inv.observer.OnIteration(ctx, Progress{
			Column:    t,
			Iteration: iter,
			MaxIter:   inv.params.MaxIter,
			Objective: objective,
			Tolerance: inv.params.Tolerance,
		})
	}

	qol := make([]float64, j)
	for i := range a {
		qol[i] = a[i] / a[0]
	}

	res := ColumnResult{
		QoL:        qol,
		Iterations: iter,
		Objective:  objective,
		Converged:  objective <= inv.params.Tolerance,
	}
	span.SetAttributes(
		attribute.Int("qol.iterations", res.Iterations),
		attribute.Float64("qol.objective", res.Objective),
		attribute.Bool("qol.converged", res.Converged),
	)
	return res, nil
}
