package table

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"abrsqol/internal/validation"
)

// Loader reads tables from disk after validating the path.
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
}

// NewLoader creates a Loader. A nil logger uses slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger,
		validator: validation.NewFileValidator(logger),
	}
}

// Load reads a CSV or Excel file chosen by extension. sheet is only used for
// Excel workbooks.
func (l *Loader) Load(ctx context.Context, path, sheet string) (*Table, error) {
	format, err := l.validator.ValidateTableFile(path)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch format {
	case validation.FormatXLSX:
		t, err = OpenXLSX(path, sheet)
	default:
		t, err = l.loadCSV(path)
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to load table",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	l.logger.InfoContext(ctx, "table loaded",
		slog.String("file", path),
		slog.String("format", format),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", len(t.Header)))
	return t, nil
}

func (l *Loader) loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
