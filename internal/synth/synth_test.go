package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(DefaultOptions())
	require.NoError(t, err)
	b, err := Generate(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	opts := DefaultOptions()
	opts.Seed = 2
	c, err := Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.Rows, c.Rows)
}

func TestGenerateShape(t *testing.T) {
	opts := DefaultOptions()
	opts.Locations = 12
	opts.Theta = 3

	tbl, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, 12, tbl.NumRows())
	assert.Equal(t, []string{
		"location", "w_1", "w_2", "w_3", "p_H", "P_t", "p_n",
		"L_1", "L_2", "L_3", "L_b_1", "L_b_2", "L_b_3",
	}, tbl.Header)

	in, err := table.Extract(tbl, Columns(opts.Theta))
	require.NoError(t, err)
	j, theta := in.Dims()
	assert.Equal(t, 12, j)
	assert.Equal(t, 3, theta)
}

func TestGenerateWithinSpread(t *testing.T) {
	tbl, err := Generate(DefaultOptions())
	require.NoError(t, err)
	in, err := table.Extract(tbl, Columns(1))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.InDelta(t, 1.0, in.W.At(i, 0), 0.2)
		assert.InDelta(t, 1.0, in.Pt.At(i, 0), 0.05)
		assert.InDelta(t, 1000.0, in.L.At(i, 0), 500)
	}
}

func TestGeneratedDataConverges(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		opts := DefaultOptions()
		opts.Seed = seed
		tbl, err := Generate(opts)
		require.NoError(t, err)
		in, err := table.Extract(tbl, Columns(1))
		require.NoError(t, err)

		inv, err := qol.NewInverter(qol.DefaultParams())
		require.NoError(t, err)
		res, err := inv.Solve(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, res.Converged(), "seed %d", seed)
		assert.Equal(t, 1.0, res.QoL()[0])
	}
}

func TestGenerateInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"single location", func(o *Options) { o.Locations = 1 }},
		{"zero theta", func(o *Options) { o.Theta = 0 }},
		{"spread of one allows zero prices", func(o *Options) { o.HousingSpread = 1 }},
		{"negative spread", func(o *Options) { o.WageSpread = -0.1 }},
		{"no population", func(o *Options) { o.BasePopulation = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := Generate(opts)
			assert.Error(t, err)
		})
	}
}
