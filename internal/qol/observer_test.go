package qol

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"abrsqol/internal/shared/testutil"
)

type countingObserver struct {
	iterations atomic.Int64
	completed  atomic.Int64
}

func (c *countingObserver) OnIteration(context.Context, Progress) { c.iterations.Add(1) }

func (c *countingObserver) OnComplete(context.Context, int, ColumnResult) { c.completed.Add(1) }

func TestMultiObserverFansOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	inv := newTestInverter(t, DefaultParams(), WithObserver(MultiObserver{a, b}))

	res, err := inv.Solve(context.Background(), fiveLocations())
	require.NoError(t, err)

	iters := int64(res.Columns[0].Iterations)
	assert.Equal(t, iters, a.iterations.Load())
	assert.Equal(t, iters, b.iterations.Load())
	assert.Equal(t, int64(1), a.completed.Load())
	assert.Equal(t, int64(1), b.completed.Load())
}

func TestLogObserver(t *testing.T) {
	t.Run("converged column logs info", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		inv := newTestInverter(t, DefaultParams(), WithObserver(NewLogObserver(logger, 100)))

		res, err := inv.Solve(context.Background(), fiveLocations())
		require.NoError(t, err)

		testutil.AssertLogContains(t, logs, slog.LevelInfo, "quality of life measure converged")
		testutil.AssertLogAttr(t, logs, "component", "qol_inverter")
		testutil.AssertLogAttr(t, logs, "iterations", int64(res.Columns[0].Iterations))
		testutil.AssertNoErrors(t, logs)

		// First pass plus every 100th.
		debug := logs.GetRecordsByMessage("iteration")
		want := 1 + res.Columns[0].Iterations/100
		assert.Len(t, debug, want)
	})

	t.Run("iteration cap logs warning", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		params := DefaultParams()
		params.MaxIter = 3
		inv := newTestInverter(t, params, WithObserver(NewLogObserver(logger, 0)))

		_, err := inv.Solve(context.Background(), fiveLocations())
		require.NoError(t, err)

		testutil.AssertLogContains(t, logs, slog.LevelWarn, "iteration cap reached")
		assert.Len(t, logs.GetRecordsByLevel(slog.LevelDebug), 3)
	})
}

func TestSolveLogsLifecycle(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	inv := newTestInverter(t, DefaultParams(), WithLogger(logger))

	_, err := inv.Solve(context.Background(), fiveLocations())
	require.NoError(t, err)
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "begin loop to solve for quality of life measure")
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "quality of life measure generated")
	testutil.AssertLogAttr(t, logs, "locations", int64(5))

	logs.Clear()
	in := fiveLocations()
	in.L = nil
	_, err = inv.Solve(context.Background(), in)
	require.Error(t, err)
	testutil.AssertLogContains(t, logs, slog.LevelError, "input validation failed")
}

func TestMetricsObserver(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics, err := NewMetricsObserver(provider.Meter("qol-test"))
	require.NoError(t, err)

	inv := newTestInverter(t, DefaultParams(), WithObserver(metrics))
	res, err := inv.Solve(ctx, fiveLocations())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m
		}
	}

	iterations, ok := found["qol_iterations_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "qol_iterations_total must be an int64 sum")
	require.Len(t, iterations.DataPoints, 1)
	assert.Equal(t, int64(res.Columns[0].Iterations), iterations.DataPoints[0].Value)

	columns, ok := found["qol_columns_solved_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, columns.DataPoints, 1)
	assert.Equal(t, int64(1), columns.DataPoints[0].Value)
	converged, _ := columns.DataPoints[0].Attributes.Value("converged")
	assert.True(t, converged.AsBool())

	perColumn, ok := found["qol_iterations_per_column"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, perColumn.DataPoints, 1)
	assert.Equal(t, uint64(1), perColumn.DataPoints[0].Count)

	_, ok = found["qol_final_objective"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}
