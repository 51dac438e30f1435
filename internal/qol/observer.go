package qol

import (
	"context"
	"log/slog"
)

// Progress describes one completed update pass of one column.
type Progress struct {
	Column    int     `json:"column"`
	Iteration int     `json:"iteration"`
	MaxIter   int     `json:"maxiter"`
	Objective float64 `json:"objective"`
	Tolerance float64 `json:"tolerance"`
}

// Observer receives solver progress. Columns are solved concurrently, so
// implementations must be safe for concurrent use.
type Observer interface {
	OnIteration(ctx context.Context, p Progress)
	OnComplete(ctx context.Context, column int, res ColumnResult)
}

// ObserverFunc adapts a function to an Observer that ignores completion.
type ObserverFunc func(ctx context.Context, p Progress)

func (f ObserverFunc) OnIteration(ctx context.Context, p Progress) { f(ctx, p) }

func (f ObserverFunc) OnComplete(context.Context, int, ColumnResult) {}

// MultiObserver fans progress out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnIteration(ctx context.Context, p Progress) {
	for _, o := range m {
		o.OnIteration(ctx, p)
	}
}

func (m MultiObserver) OnComplete(ctx context.Context, column int, res ColumnResult) {
	for _, o := range m {
		o.OnComplete(ctx, column, res)
	}
}

type noopObserver struct{}

func (noopObserver) OnIteration(context.Context, Progress)         {}
func (noopObserver) OnComplete(context.Context, int, ColumnResult) {}

// LogObserver writes progress to a structured logger. Iterations are logged
// at debug level every Every passes; completion is logged at info level.
type LogObserver struct {
	logger *slog.Logger
	every  int
}

// NewLogObserver creates a LogObserver. every <= 0 logs every iteration.
func NewLogObserver(logger *slog.Logger, every int) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	if every <= 0 {
		every = 1
	}
	return &LogObserver{
		logger: logger.With(slog.String("component", "qol_inverter")),
		every:  every,
	}
}

func (o *LogObserver) OnIteration(ctx context.Context, p Progress) {
	if p.Iteration%o.every != 0 && p.Iteration != 1 {
		return
	}
	o.logger.DebugContext(ctx, "iteration",
		"column", p.Column,
		"iteration", p.Iteration,
		"maxiter", p.MaxIter,
		"objective", p.Objective,
		"tolerance", p.Tolerance,
	)
}

func (o *LogObserver) OnComplete(ctx context.Context, column int, res ColumnResult) {
	if !res.Converged {
		o.logger.WarnContext(ctx, "iteration cap reached before tolerance",
			"column", column,
			"iterations", res.Iterations,
			"objective", res.Objective,
		)
		return
	}
	o.logger.InfoContext(ctx, "quality of life measure converged",
		"column", column,
		"iterations", res.Iterations,
		"objective", res.Objective,
	)
}
