// Command qol-testdata writes a reproducible synthetic location table that
// qol-invert can consume with its default column names.
//
//	qol-testdata -out testdata.xlsx -locations 50 -theta 3 -seed 7
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"abrsqol/internal/config"
	"abrsqol/internal/exporter"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/synth"
	"abrsqol/internal/validation"
)

// SheetName is the worksheet written for XLSX output.
const SheetName = "locations"

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("qol-testdata", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := synth.DefaultOptions()
	out := fs.String("out", "", "output file (.csv or .xlsx); CSV on stdout when empty")
	fs.IntVar(&opts.Locations, "locations", opts.Locations, "number of locations")
	fs.IntVar(&opts.Theta, "theta", opts.Theta, "number of wage/population columns")
	fs.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	fs.Float64Var(&opts.WageSpread, "wage-spread", opts.WageSpread, "relative wage spread")
	fs.Float64Var(&opts.HousingSpread, "housing-spread", opts.HousingSpread, "relative housing price spread")
	fs.Float64Var(&opts.TradableSpread, "tradable-spread", opts.TradableSpread, "relative tradable price spread")
	fs.Float64Var(&opts.ServicesSpread, "services-spread", opts.ServicesSpread, "relative non-tradable price spread")
	fs.Float64Var(&opts.PopulationSpread, "population-spread", opts.PopulationSpread, "relative population spread")
	fs.Float64Var(&opts.BasePopulation, "base-population", opts.BasePopulation, "baseline population per location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(config.Default().Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	t, err := synth.Generate(opts)
	if err != nil {
		return err
	}

	write := exporter.WriteOptions{Headers: t.Header, Records: t.Rows}
	if *out == "" {
		return exporter.NewCSVWriter(logger).Write(stdout, write)
	}

	format, err := validation.NewFileValidator(logger).ValidateOutputFile(*out)
	if err != nil {
		return err
	}
	switch format {
	case validation.FormatXLSX:
		err = exporter.NewXLSXWriter(logger).WriteXLSX(*out, exporter.Sheet{
			Name:    SheetName,
			Headers: t.Header,
			Records: t.Rows,
		})
	default:
		err = exporter.NewCSVWriter(logger).WriteCSV(*out, write)
	}
	if err != nil {
		return err
	}

	logger.Info("test data written",
		slog.String("file", *out),
		slog.Int("locations", opts.Locations),
		slog.Int("theta", opts.Theta),
		slog.Int64("seed", opts.Seed))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("qol-testdata failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
