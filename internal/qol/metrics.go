package qol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver records solver activity as OpenTelemetry instruments.
type MetricsObserver struct {
	iterations      metric.Int64Counter
	columns         metric.Int64Counter
	finalObjective  metric.Float64Histogram
	iterationsSolve metric.Int64Histogram
}

// NewMetricsObserver registers the solver instruments on meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	iterations, err := meter.Int64Counter(
		"qol_iterations_total",
		metric.WithDescription("Total number of fixed-point update passes"),
	)
	if err != nil {
		return nil, err
	}

	columns, err := meter.Int64Counter(
		"qol_columns_solved_total",
		metric.WithDescription("Total number of Theta columns solved, by convergence outcome"),
	)
	if err != nil {
		return nil, err
	}

	finalObjective, err := meter.Float64Histogram(
		"qol_final_objective",
		metric.WithDescription("Mean absolute change at the last iteration of a column"),
	)
	if err != nil {
		return nil, err
	}

	iterationsSolve, err := meter.Int64Histogram(
		"qol_iterations_per_column",
		metric.WithDescription("Iterations needed per Theta column"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsObserver{
		iterations:      iterations,
		columns:         columns,
		finalObjective:  finalObjective,
		iterationsSolve: iterationsSolve,
	}, nil
}

func (m *MetricsObserver) OnIteration(ctx context.Context, _ Progress) {
	m.iterations.Add(ctx, 1)
}

func (m *MetricsObserver) OnComplete(ctx context.Context, _ int, res ColumnResult) {
	attrs := metric.WithAttributes(attribute.Bool("converged", res.Converged))
	m.columns.Add(ctx, 1, attrs)
	m.finalObjective.Record(ctx, res.Objective, attrs)
	m.iterationsSolve.Record(ctx, int64(res.Iterations), attrs)
}
