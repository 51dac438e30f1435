package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
	"abrsqol/internal/validation"
)

// Sheet names used in Excel exports.
const (
	DataSheet   = "qol"
	SolverSheet = "solver"
)

// Exporter writes an input table augmented with QoL results.
type Exporter struct {
	logger    *slog.Logger
	csv       *CSVWriter
	xlsx      *XLSXWriter
	validator *validation.FileValidator
}

// NewExporter creates an Exporter. A nil logger uses slog.Default.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		logger:    logger,
		csv:       NewCSVWriter(logger),
		xlsx:      NewXLSXWriter(logger),
		validator: validation.NewFileValidator(logger),
	}
}

// ColumnNames returns the output column names: "qol" for a single Theta
// column, "qol_1".."qol_Theta" otherwise.
func ColumnNames(theta int) []string {
	if theta == 1 {
		return []string{"qol"}
	}
	names := make([]string, theta)
	for t := range names {
		names[t] = fmt.Sprintf("qol_%d", t+1)
	}
	return names
}

// WithResults returns a copy of t with one QoL column appended per Theta
// column of res.
func WithResults(t *table.Table, res *qol.Result) (*table.Table, error) {
	header := append([]string(nil), t.Header...)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	out := table.New(header, rows)

	for i, name := range ColumnNames(len(res.Columns)) {
		if err := out.AppendColumn(name, res.Columns[i].QoL); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SummaryRecords lists per-column solver diagnostics.
func SummaryRecords(res *qol.Result) (headers []string, records [][]string) {
	headers = []string{"column", "iterations", "objective", "converged"}
	names := ColumnNames(len(res.Columns))
	for i, c := range res.Columns {
		records = append(records, []string{
			names[i],
			formatInt(c.Iterations),
			formatFloat(c.Objective),
			formatBool(c.Converged),
		})
	}
	return headers, records
}

// Export writes t plus the results of res to path. The format follows the
// file extension.
func (e *Exporter) Export(ctx context.Context, path string, t *table.Table, res *qol.Result) error {
	format, err := e.validator.ValidateOutputFile(path)
	if err != nil {
		return err
	}

	out, err := WithResults(t, res)
	if err != nil {
		return fmt.Errorf("attach results: %w", err)
	}

	switch format {
	case validation.FormatXLSX:
		headers, records := SummaryRecords(res)
		err = e.xlsx.WriteXLSX(path,
			Sheet{Name: DataSheet, Headers: out.Header, Records: out.Rows},
			Sheet{Name: SolverSheet, Headers: headers, Records: records},
		)
	default:
		err = e.csv.WriteCSV(path, WriteOptions{Headers: out.Header, Records: out.Rows})
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "export failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("export %s: %w", path, err)
	}

	e.logger.InfoContext(ctx, "results exported",
		slog.String("file", path),
		slog.String("format", format),
		slog.Int("rows", out.NumRows()))
	return nil
}

// WriteCSV streams t plus the results of res as CSV to w.
func (e *Exporter) WriteCSV(w io.Writer, t *table.Table, res *qol.Result) error {
	out, err := WithResults(t, res)
	if err != nil {
		return fmt.Errorf("attach results: %w", err)
	}
	return e.csv.Write(w, WriteOptions{Headers: out.Header, Records: out.Rows})
}
