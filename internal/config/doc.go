// Package config loads configuration for the QoL executables.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// The file is taken from the path passed to Load, then QOL_CONFIG, then
// config.yaml or configs/config.yaml in the working directory.
//
// # Environment Variables
//
// All environment variables follow the pattern QOL_<SECTION>_<FIELD>:
//
//	QOL_MODEL_GAMMA=4
//	QOL_SOLVER_MAX_ITER=20000
//	QOL_COLUMNS_W=w_2010,w_2020
//	QOL_SERVER_PORT=8080
//	QOL_LOGGING_LEVEL=debug
//	QOL_INPUT_FILE=data/locations.xlsx
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	inv, err := qol.NewInverter(cfg.ModelParams())
package config
