// Command qol-invert reads a location table (CSV or XLSX), inverts the
// quality of life of every location and writes the table back with a qol
// column appended.
//
//	qol-invert -in data.csv -out result.xlsx -xi 4 -w wage_2010,wage_2020
//
// When -in is a directory every table in it is inverted and written to the
// -out directory as <name>_qol.<ext>.
//
//	qol-invert -in regions/ -out results/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"abrsqol/internal/config"
	"abrsqol/internal/exporter"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/qol"
	"abrsqol/internal/services"
	"abrsqol/internal/table"
)

var (
	// errNotConverged is returned when -strict is set and a column hit MaxIter.
	errNotConverged = errors.New("solver did not converge")
	// errBatchFailed is returned when a table of a directory run failed.
	errBatchFailed = errors.New("some tables failed")
	errNoOutputDir = errors.New("-out must name a directory when -in is a directory")
)

type options struct {
	configPath string
	in         string
	out        string
	sheet      string
	strict     bool

	columns map[string]*string
	params  map[string]*float64
	maxIter int
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("qol-invert", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{
		columns: make(map[string]*string),
		params:  make(map[string]*float64),
	}
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (default $QOL_CONFIG or ./config.yaml)")
	fs.StringVar(&opts.in, "in", "", "input table (.csv or .xlsx), or a directory of tables")
	fs.StringVar(&opts.out, "out", "", "output table (.csv or .xlsx), or directory for -in directories; CSV on stdout when empty")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet for XLSX input (default first sheet)")
	fs.BoolVar(&opts.strict, "strict", false, "exit non-zero when a column does not converge")

	for _, c := range []struct{ name, usage string }{
		{"w", "wage column(s), comma-separated for several Theta columns"},
		{"ph", "housing price column"},
		{"pt", "tradable goods price column"},
		{"pn", "non-tradable goods price column"},
		{"l", "residence population column(s)"},
		{"lb", "hometown (birthplace) population column(s)"},
	} {
		opts.columns[c.name] = fs.String(c.name, "", c.usage+" (name or zero-based index)")
	}

	for _, p := range []struct{ name, usage string }{
		{"alpha", "non-housing expenditure share"},
		{"beta", "tradable share of non-housing consumption"},
		{"gamma", "taste dispersion"},
		{"xi", "valuation of local ties"},
		{"conv", "damping factor in (0, 1]"},
		{"tol", "convergence tolerance"},
	} {
		opts.params[p.name] = fs.Float64(p.name, 0, p.usage)
	}
	fs.IntVar(&opts.maxIter, "maxiter", 0, "iteration cap per column")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, fs, nil
}

// apply overlays explicitly set flags onto cfg.
func (o *options) apply(cfg *config.Config, fs *flag.FlagSet) {
	if o.in != "" {
		cfg.Input.Path = o.in
	}
	if o.out != "" {
		cfg.Output.Path = o.out
	}
	if o.sheet != "" {
		cfg.Input.Sheet = o.sheet
	}

	fs.Visit(func(f *flag.Flag) {
		if v, ok := o.columns[f.Name]; ok {
			sel := []string(table.ParseSelector(*v))
			switch f.Name {
			case "w":
				cfg.Columns.W = sel
			case "ph":
				cfg.Columns.PH = sel
			case "pt":
				cfg.Columns.Pt = sel
			case "pn":
				cfg.Columns.Pn = sel
			case "l":
				cfg.Columns.L = sel
			case "lb":
				cfg.Columns.Lb = sel
			}
			return
		}
		if v, ok := o.params[f.Name]; ok {
			switch f.Name {
			case "alpha":
				cfg.Model.Alpha = *v
			case "beta":
				cfg.Model.Beta = *v
			case "gamma":
				cfg.Model.Gamma = *v
			case "xi":
				cfg.Model.Xi = *v
			case "conv":
				cfg.Solver.Conv = *v
			case "tol":
				cfg.Solver.Tolerance = *v
			}
			return
		}
		if f.Name == "maxiter" {
			cfg.Solver.MaxIter = o.maxIter
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg, fs)

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	ctx = infrastructure.EnsureTraceID(ctx)

	svc, err := services.NewQoLService(cfg, logger, nil)
	if err != nil {
		return err
	}

	if info, err := os.Stat(cfg.Input.Path); err == nil && info.IsDir() {
		return runDir(ctx, svc, cfg, opts.strict, logger)
	}

	job := services.FileJob{
		InputPath:  cfg.Input.Path,
		Sheet:      cfg.Input.Sheet,
		OutputPath: cfg.Output.Path,
		Columns:    cfg.TableColumns(),
		Params:     cfg.ModelParams(),
	}
	out, err := svc.InvertFile(ctx, job)
	if err != nil {
		return err
	}

	if job.OutputPath == "" {
		err := exporter.NewCSVWriter(logger).Write(stdout, exporter.WriteOptions{
			Headers: out.Table.Header,
			Records: out.Table.Rows,
		})
		if err != nil {
			return err
		}
	}

	if !logColumns(ctx, logger, out.Result) && opts.strict {
		return errNotConverged
	}
	return nil
}

func runDir(ctx context.Context, svc *services.QoLService, cfg *config.Config, strict bool, logger *slog.Logger) error {
	if cfg.Output.Path == "" {
		return errNoOutputDir
	}
	results, err := svc.InvertDir(ctx, services.DirJob{
		InputDir:  cfg.Input.Path,
		OutputDir: cfg.Output.Path,
		Sheet:     cfg.Input.Sheet,
		Columns:   cfg.TableColumns(),
		Params:    cfg.ModelParams(),
	})
	if err != nil {
		return err
	}

	failed, allConverged := 0, true
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		tableLogger := logger.With(slog.String("input", r.InputPath), slog.String("output", r.OutputPath))
		if !logColumns(ctx, tableLogger, r.Result) {
			allConverged = false
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errBatchFailed, failed, len(results))
	}
	if strict && !allConverged {
		return errNotConverged
	}
	return nil
}

// logColumns logs the outcome of every column and reports whether all of
// them converged.
func logColumns(ctx context.Context, logger *slog.Logger, res *qol.Result) bool {
	allConverged := true
	for t, c := range res.Columns {
		attrs := []any{
			slog.Int("column", t),
			slog.Int("iterations", c.Iterations),
			slog.Float64("objective", c.Objective),
		}
		if !c.Converged {
			allConverged = false
			logger.WarnContext(ctx, "column did not converge", attrs...)
			continue
		}
		logger.InfoContext(ctx, "column converged", attrs...)
	}
	return allConverged
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("qol-invert failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
