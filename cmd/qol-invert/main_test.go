package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/config"
	"abrsqol/internal/services"
	"abrsqol/internal/shared/testutil"
	"abrsqol/internal/table"
)

func readQoL(t *testing.T, r io.Reader, column string) []float64 {
	t.Helper()
	records, err := csv.NewReader(r).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	idx := -1
	for i, h := range records[0] {
		if h == column {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx, "column %q missing from %v", column, records[0])

	values := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		v, err := strconv.ParseFloat(rec[idx], 64)
		require.NoError(t, err)
		values = append(values, v)
	}
	return values
}

func TestRun_Stdout(t *testing.T) {
	in := testutil.WriteFixture(t, "five.csv", testutil.FiveLocationsCSV)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-in", in}, &stdout, io.Discard))

	assert.InDeltaSlice(t, testutil.FiveLocationsQoL, readQoL(t, &stdout, "qol"), 1e-8)
}

func TestRun_OutputFile(t *testing.T) {
	in := testutil.WriteFixture(t, "five.csv", testutil.FiveLocationsCSV)

	tests := []struct {
		name string
		file string
	}{
		{name: "csv", file: "out.csv"},
		{name: "xlsx", file: "out.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), tt.file)
			var stdout bytes.Buffer
			require.NoError(t, run(context.Background(), []string{"-in", in, "-out", out}, &stdout, io.Discard))
			assert.Empty(t, stdout.String())

			loaded, err := table.NewLoader(nil).Load(context.Background(), out, "")
			require.NoError(t, err)
			idx, err := loaded.Index("qol")
			require.NoError(t, err)
			got, err := loaded.Floats(idx)
			require.NoError(t, err)
			assert.InDeltaSlice(t, testutil.FiveLocationsQoL, got, 1e-8)
		})
	}
}

func TestRun_Flags(t *testing.T) {
	renamed := strings.Replace(testutil.FiveLocationsCSV, "id,w,p_H", "id,wage,p_H", 1)
	in := testutil.WriteFixture(t, "renamed.csv", renamed)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, qol []float64)
	}{
		{
			name: "column by name",
			args: []string{"-w", "wage"},
			check: func(t *testing.T, qol []float64) {
				assert.InDeltaSlice(t, testutil.FiveLocationsQoL, qol, 1e-8)
			},
		},
		{
			name: "column by index",
			args: []string{"-w", "1"},
			check: func(t *testing.T, qol []float64) {
				assert.InDeltaSlice(t, testutil.FiveLocationsQoL, qol, 1e-8)
			},
		},
		{
			name: "param override",
			args: []string{"-w", "wage", "-xi", "2"},
			check: func(t *testing.T, qol []float64) {
				assert.Equal(t, 1.0, qol[0])
				assert.NotEqual(t, testutil.FiveLocationsQoL[1], qol[1])
			},
		},
		{
			name: "iteration cap is not an error",
			args: []string{"-w", "wage", "-maxiter", "2"},
			check: func(t *testing.T, qol []float64) {
				assert.Len(t, qol, 5)
			},
		},
		{
			name:    "strict iteration cap",
			args:    []string{"-w", "wage", "-maxiter", "2", "-strict"},
			wantErr: errNotConverged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			err := run(context.Background(), append([]string{"-in", in}, tt.args...), &stdout, io.Discard)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, readQoL(t, &stdout, "qol"))
		})
	}
}

func TestRun_Directory(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "north.csv"), []byte(testutil.FiveLocationsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "south.csv"), []byte(testutil.FiveLocationsCSV), 0o644))
	out := filepath.Join(t.TempDir(), "results")

	require.NoError(t, run(context.Background(), []string{"-in", in, "-out", out}, io.Discard, io.Discard))

	for _, name := range []string{"north_qol.csv", "south_qol.csv"} {
		f, err := os.Open(filepath.Join(out, name))
		require.NoError(t, err)
		assert.InDeltaSlice(t, testutil.FiveLocationsQoL, readQoL(t, f, "qol"), 1e-8, name)
		f.Close()
	}

	t.Run("no output directory", func(t *testing.T) {
		err := run(context.Background(), []string{"-in", in}, io.Discard, io.Discard)
		assert.ErrorIs(t, err, errNoOutputDir)
	})

	t.Run("failed table", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(in, "broken.csv"), []byte("id,w\n1,1\n"), 0o644))
		err := run(context.Background(), []string{"-in", in, "-out", out}, io.Discard, io.Discard)
		assert.ErrorIs(t, err, errBatchFailed)
		assert.Contains(t, err.Error(), "1 of 3")
	})
}

func TestRun_Errors(t *testing.T) {
	in := testutil.WriteFixture(t, "five.csv", testutil.FiveLocationsCSV)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no input", args: nil, wantErr: services.ErrNoInput},
		{name: "help", args: []string{"-h"}, wantErr: flag.ErrHelp},
		{name: "unknown column", args: []string{"-in", in, "-w", "missing"}},
		{name: "invalid param", args: []string{"-in", in, "-gamma", "0"}},
		{name: "positional argument", args: []string{"-in", in, "extra"}},
		{name: "missing file", args: []string{"-in", filepath.Join(t.TempDir(), "nope.csv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, io.Discard, io.Discard)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOptionsApply(t *testing.T) {
	opts, fs, err := parseFlags([]string{
		"-in", "data.xlsx", "-sheet", "Sheet2",
		"-l", "pop_1,pop_2", "-lb", "3,4",
		"-alpha", "0.6", "-conv", "0.25", "-maxiter", "50",
	}, io.Discard)
	require.NoError(t, err)

	cfg := config.Default()
	opts.apply(cfg, fs)

	assert.Equal(t, "data.xlsx", cfg.Input.Path)
	assert.Equal(t, "Sheet2", cfg.Input.Sheet)
	assert.Equal(t, []string{"pop_1", "pop_2"}, cfg.Columns.L)
	assert.Equal(t, []string{"3", "4"}, cfg.Columns.Lb)
	assert.Equal(t, 0.6, cfg.Model.Alpha)
	assert.Equal(t, 0.25, cfg.Solver.Conv)
	assert.Equal(t, 50, cfg.Solver.MaxIter)

	// unset flags keep config values
	defaults := config.Default()
	assert.Equal(t, defaults.Model.Xi, cfg.Model.Xi)
	assert.Equal(t, defaults.Columns.W, cfg.Columns.W)
}

func TestColumnFlagUsage(t *testing.T) {
	_, fs, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)

	tests := []struct {
		flag string
		want string
	}{
		{"l", "residence population"},
		{"lb", "hometown (birthplace) population"},
		{"w", "wage column(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := fs.Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Contains(t, f.Usage, tt.want)
			assert.Contains(t, f.Usage, "(name or zero-based index)")
		})
	}
}

func TestMain(m *testing.M) {
	os.Unsetenv("QOL_CONFIG")
	os.Exit(m.Run())
}
