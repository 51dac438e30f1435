package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

// EnvPrefix namespaces every environment variable.
const EnvPrefix = "QOL"

// Config represents the complete application configuration
type Config struct {
	Model     ModelConfig     `yaml:"model" envconfig:"MODEL"`
	Solver    SolverConfig    `yaml:"solver" envconfig:"SOLVER"`
	Columns   ColumnsConfig   `yaml:"columns" envconfig:"COLUMNS"`
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ModelConfig holds the structural parameters of the spatial model.
type ModelConfig struct {
	Alpha float64 `yaml:"alpha" envconfig:"ALPHA"`
	Beta  float64 `yaml:"beta" envconfig:"BETA"`
	Gamma float64 `yaml:"gamma" envconfig:"GAMMA"`
	Xi    float64 `yaml:"xi" envconfig:"XI"`
}

// SolverConfig controls the fixed-point iteration.
type SolverConfig struct {
	Conv           float64       `yaml:"conv" envconfig:"CONV"`
	Tolerance      float64       `yaml:"tolerance" envconfig:"TOLERANCE"`
	MaxIter        int           `yaml:"max_iter" envconfig:"MAX_ITER"`
	MaxConcurrency int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	LogEvery       int           `yaml:"log_every" envconfig:"LOG_EVERY"`
}

// ColumnsConfig names the table columns holding each variable. Entries are
// header names or zero-based indexes.
type ColumnsConfig struct {
	W  []string `yaml:"w" envconfig:"W"`
	PH []string `yaml:"p_h" envconfig:"P_H"`
	Pt []string `yaml:"p_t" envconfig:"P_T"`
	Pn []string `yaml:"p_n" envconfig:"P_N"`
	L  []string `yaml:"l" envconfig:"L"`
	Lb []string `yaml:"l_b" envconfig:"L_B"`
}

// InputConfig locates the input table.
type InputConfig struct {
	Path  string `yaml:"path" envconfig:"FILE"`
	Sheet string `yaml:"sheet" envconfig:"SHEET"`
}

// OutputConfig locates the result table.
type OutputConfig struct {
	Path string `yaml:"path" envconfig:"FILE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// JobsConfig sizes the asynchronous inversion queue.
type JobsConfig struct {
	Workers   int           `yaml:"workers" envconfig:"WORKERS"`
	QueueSize int           `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	Retention time.Duration `yaml:"retention" envconfig:"RETENTION"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"` // json or text
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls OpenTelemetry metrics and tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceStdout bool   `yaml:"trace_stdout" envconfig:"TRACE_STDOUT"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// the first file found by FilePath when path is empty) and QOL_* variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = FilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their current value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg. Keys absent
// from the file leave cfg untouched.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// FilePath returns the configuration file to use when none is given
// explicitly, or "" when there is none.
func FilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// validate checks cross-field constraints. Model parameters are checked by
// qol.Params.Validate so the rules live in one place.
func (c *Config) validate() error {
	var errs []error

	if err := c.ModelParams().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Solver.Timeout < 0 {
		errs = append(errs, fmt.Errorf("solver timeout must not be negative"))
	}
	if c.Solver.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("solver max_concurrency must not be negative"))
	}

	cols := c.TableColumns()
	for name, sel := range map[string]table.Selector{
		"w": cols.W, "p_H": cols.PH, "P_t": cols.Pt, "p_n": cols.Pn, "L": cols.L, "L_b": cols.Lb,
	} {
		if len(sel) == 0 {
			errs = append(errs, fmt.Errorf("column selector for %s must not be empty", name))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server read timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server write timeout must be positive"))
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		errs = append(errs, fmt.Errorf("rate limit rps and burst must be positive when enabled"))
	}

	if c.Jobs.Workers <= 0 || c.Jobs.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("jobs workers and queue_size must be positive"))
	}
	if c.Jobs.Retention < 0 {
		errs = append(errs, fmt.Errorf("jobs retention must not be negative"))
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		errs = append(errs, fmt.Errorf("invalid logging output %q (want console, file or both)", c.Logging.Output))
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		errs = append(errs, fmt.Errorf("logging file_path required for output %q", c.Logging.Output))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid logging format %q (want json or text)", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid logging level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ModelParams converts the model and solver sections into solver parameters.
func (c *Config) ModelParams() qol.Params {
	return qol.Params{
		Alpha:     c.Model.Alpha,
		Beta:      c.Model.Beta,
		Gamma:     c.Model.Gamma,
		Xi:        c.Model.Xi,
		Conv:      c.Solver.Conv,
		Tolerance: c.Solver.Tolerance,
		MaxIter:   c.Solver.MaxIter,
	}
}

// TableColumns converts the column section into table selectors.
func (c *Config) TableColumns() table.Columns {
	return table.Columns{
		W:  table.Selector(c.Columns.W),
		PH: table.Selector(c.Columns.PH),
		Pt: table.Selector(c.Columns.Pt),
		Pn: table.Selector(c.Columns.Pn),
		L:  table.Selector(c.Columns.L),
		Lb: table.Selector(c.Columns.Lb),
	}
}

// Default returns default configuration
func Default() *Config {
	params := qol.DefaultParams()
	cols := table.DefaultColumns()
	return &Config{
		Model: ModelConfig{
			Alpha: params.Alpha,
			Beta:  params.Beta,
			Gamma: params.Gamma,
			Xi:    params.Xi,
		},
		Solver: SolverConfig{
			Conv:      params.Conv,
			Tolerance: params.Tolerance,
			MaxIter:   params.MaxIter,
			Timeout:   5 * time.Minute,
			LogEvery:  100,
		},
		Columns: ColumnsConfig{
			W:  cols.W,
			PH: cols.PH,
			Pt: cols.Pt,
			Pn: cols.Pn,
			L:  cols.L,
			Lb: cols.Lb,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     10,
				Burst:   20,
			},
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
			Retention: time.Hour,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/qol.log",
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: "abrsqol",
		},
	}
}
