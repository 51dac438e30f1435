// Command qol-server serves the quality of life inversion over HTTP and
// WebSocket. Configuration comes from config.yaml (or $QOL_CONFIG) and
// QOL_* environment variables.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"abrsqol/internal/app"
	"abrsqol/internal/config"
	"abrsqol/internal/infrastructure"
	"abrsqol/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $QOL_CONFIG or ./config.yaml)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
