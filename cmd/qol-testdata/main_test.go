package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/config"
	"abrsqol/internal/services"
	"abrsqol/internal/synth"
	"abrsqol/internal/table"
)

func TestRun_Stdout(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, run([]string{"-locations", "4", "-seed", "3"}, &first, io.Discard))
	require.NoError(t, run([]string{"-locations", "4", "-seed", "3"}, &second, io.Discard))

	assert.Equal(t, first.String(), second.String())

	tbl, err := table.ReadCSV(&first)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.NumRows())
	assert.Equal(t, []string{"location", "w", "p_H", "P_t", "p_n", "L", "L_b"}, tbl.Header)
}

// The generated file must be invertible with its own column layout.
func TestRun_FileRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		theta int
		sheet string
	}{
		{name: "csv", file: "data.csv", theta: 1},
		{name: "xlsx", file: "data.xlsx", theta: 2, sheet: SheetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), tt.file)
			args := []string{"-out", out, "-locations", "6", "-theta", strconv.Itoa(tt.theta)}
			require.NoError(t, run(args, io.Discard, io.Discard))

			cfg := config.Default()
			svc, err := services.NewQoLService(cfg, nil, nil)
			require.NoError(t, err)

			res, err := svc.InvertFile(context.Background(), services.FileJob{
				InputPath: out,
				Sheet:     tt.sheet,
				Columns:   synth.Columns(tt.theta),
				Params:    cfg.ModelParams(),
			})
			require.NoError(t, err)
			require.Len(t, res.Result.Columns, tt.theta)
			for _, c := range res.Result.Columns {
				assert.Len(t, c.QoL, 6)
				assert.Equal(t, 1.0, c.QoL[0])
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "too few locations", args: []string{"-locations", "1"}},
		{name: "spread out of range", args: []string{"-wage-spread", "1.5"}},
		{name: "unsupported extension", args: []string{"-out", filepath.Join(t.TempDir(), "data.json")}},
		{name: "bad flag", args: []string{"-locations", "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(tt.args, io.Discard, io.Discard))
		})
	}
}
