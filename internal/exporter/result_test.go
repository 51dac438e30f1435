package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"abrsqol/internal/qol"
	"abrsqol/internal/shared/testutil"
	"abrsqol/internal/table"
)

func fixtureResult(t *testing.T) (*table.Table, *qol.Result) {
	t.Helper()

	tbl, err := table.ReadCSV(strings.NewReader(testutil.FiveLocationsCSV))
	require.NoError(t, err)
	res := &qol.Result{Columns: []qol.ColumnResult{{
		QoL:        testutil.FiveLocationsQoL,
		Iterations: 346,
		Objective:  9.97e-11,
		Converged:  true,
	}}}
	return tbl, res
}

func TestColumnNames(t *testing.T) {
	assert.Equal(t, []string{"qol"}, ColumnNames(1))
	assert.Equal(t, []string{"qol_1", "qol_2", "qol_3"}, ColumnNames(3))
}

func TestWithResults(t *testing.T) {
	tbl, res := fixtureResult(t)
	headerLen := len(tbl.Header)

	out, err := WithResults(tbl, res)
	require.NoError(t, err)

	assert.Len(t, tbl.Header, headerLen, "input table must not change")
	assert.Equal(t, "qol", out.Header[len(out.Header)-1])
	assert.Equal(t, "1", out.Rows[0][headerLen])
	assert.Equal(t, "2.134626559191494", out.Rows[1][headerLen])

	res.Columns[0].QoL = []float64{1}
	_, err = WithResults(tbl, res)
	assert.Error(t, err)
}

func TestExporter_ExportCSV(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	tbl, res := fixtureResult(t)
	path := filepath.Join(t.TempDir(), "out", "qol.csv")

	require.NoError(t, NewExporter(logger).Export(context.Background(), path, tbl, res))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 6)
	assert.Equal(t, []string{"id", "w", "p_H", "P_t", "p_n", "L", "L_b", "qol"}, records[0])
	assert.Equal(t, "0.8013492947444294", records[5][7])
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "results exported")
}

func TestExporter_ExportXLSX(t *testing.T) {
	tbl, res := fixtureResult(t)
	path := filepath.Join(t.TempDir(), "qol.xlsx")

	require.NoError(t, NewExporter(nil).Export(context.Background(), path, tbl, res))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DataSheet, SolverSheet}, f.GetSheetList())

	rows, err := f.GetRows(DataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "qol", rows[0][7])

	typ, err := f.GetCellType(DataSheet, "H3")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "QoL must be stored as a number")

	summary, err := f.GetRows(SolverSheet)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"column", "iterations", "objective", "converged"}, summary[0])
	assert.Equal(t, "346", summary[1][1])
	assert.Equal(t, "true", summary[1][3])
}

func TestExporter_UnsupportedFormat(t *testing.T) {
	tbl, res := fixtureResult(t)
	err := NewExporter(nil).Export(context.Background(), filepath.Join(t.TempDir(), "qol.json"), tbl, res)
	assert.Error(t, err)
}

func TestExporter_WriteCSV(t *testing.T) {
	tbl, res := fixtureResult(t)
	var buf bytes.Buffer
	require.NoError(t, NewExporter(nil).WriteCSV(&buf, tbl, res))
	assert.True(t, strings.HasPrefix(buf.String(), "id,w,p_H,P_t,p_n,L,L_b,qol\n1,1.0,"))
}

func TestExporter_WriteCSVTrailingComma(t *testing.T) {
	tbl, err := table.ReadCSV(strings.NewReader("w,p_H,P_t,p_n,L,L_b\n1,1,1,1,10,10,\n1.2,1.1,1,1,12,9,\n"))
	require.NoError(t, err)
	in, err := table.Extract(tbl, table.DefaultColumns())
	require.NoError(t, err)
	inv, err := qol.NewInverter(qol.DefaultParams(), qol.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	res, err := inv.Solve(context.Background(), in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(nil).WriteCSV(&buf, tbl, res))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"w", "p_H", "P_t", "p_n", "L", "L_b", "qol"}, records[0])
	assert.Equal(t, []string{"1", "1", "1", "1", "10", "10", "1"}, records[1])
	assert.Len(t, records[2], 7)
	assert.NotEmpty(t, records[2][6])
}
