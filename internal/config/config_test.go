package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abrsqol/internal/qol"
	"abrsqol/internal/table"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, qol.DefaultParams(), cfg.ModelParams())
	assert.Equal(t, table.DefaultColumns(), cfg.TableColumns())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Solver.Timeout)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.NoError(t, cfg.validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults only",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "file overlays defaults",
			file: `
model:
  gamma: 4
solver:
  max_iter: 500
  timeout: 30s
columns:
  w: [w_2010, w_2020]
jobs:
  workers: 2
  retention: 10m
logging:
  level: debug
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4.0, cfg.Model.Gamma)
				assert.Equal(t, 0.7, cfg.Model.Alpha, "untouched keys keep defaults")
				assert.Equal(t, 500, cfg.Solver.MaxIter)
				assert.Equal(t, 30*time.Second, cfg.Solver.Timeout)
				assert.Equal(t, []string{"w_2010", "w_2020"}, cfg.Columns.W)
				assert.Equal(t, []string{"L"}, cfg.Columns.L)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 2, cfg.Jobs.Workers)
				assert.Equal(t, 64, cfg.Jobs.QueueSize)
				assert.Equal(t, 10*time.Minute, cfg.Jobs.Retention)
			},
		},
		{
			name: "env wins over file",
			env: map[string]string{
				"QOL_MODEL_GAMMA":    "5",
				"QOL_COLUMNS_L":      "L_2010,L_2020",
				"QOL_SERVER_PORT":    "9090",
				"QOL_INPUT_FILE":     "data/in.xlsx",
				"QOL_SOLVER_TIMEOUT": "1m",
			},
			file: `
model:
  gamma: 4
  xi: 6
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5.0, cfg.Model.Gamma)
				assert.Equal(t, 6.0, cfg.Model.Xi)
				assert.Equal(t, []string{"L_2010", "L_2020"}, cfg.Columns.L)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "data/in.xlsx", cfg.Input.Path)
				assert.Equal(t, time.Minute, cfg.Solver.Timeout)
			},
		},
		{
			name:    "invalid yaml",
			file:    "model: [unclosed",
			wantErr: true,
		},
		{
			name:    "unknown key",
			file:    "model:\n  delta: 1\n",
			wantErr: true,
		},
		{
			name:    "bad env value",
			env:     map[string]string{"QOL_SOLVER_MAX_ITER": "many"},
			wantErr: true,
		},
		{
			name:    "conv out of range",
			env:     map[string]string{"QOL_SOLVER_CONV": "1.5"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QOL_CONFIG", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFromConfigEnv(t *testing.T) {
	path := writeConfig(t, "solver:\n  conv: 0.25\n")
	t.Setenv("QOL_CONFIG", path)

	assert.Equal(t, path, FilePath())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Solver.Conv)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative alpha", func(c *Config) { c.Model.Alpha = -1 }, true},
		{"zero maxiter", func(c *Config) { c.Solver.MaxIter = 0 }, true},
		{"negative timeout", func(c *Config) { c.Solver.Timeout = -time.Second }, true},
		{"empty selector", func(c *Config) { c.Columns.Pn = nil }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"rate limit without burst", func(c *Config) { c.Server.RateLimit.Burst = 0 }, true},
		{"rate limit disabled", func(c *Config) {
			c.Server.RateLimit = RateLimitConfig{Enabled: false}
		}, false},
		{"no job workers", func(c *Config) { c.Jobs.Workers = 0 }, true},
		{"negative retention", func(c *Config) { c.Jobs.Retention = -time.Minute }, true},
		{"unknown output", func(c *Config) { c.Logging.Output = "syslog" }, true},
		{"file output needs path", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, true},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"text format", func(c *Config) { c.Logging.Format = "text" }, false},
		{"unknown format", func(c *Config) { c.Logging.Format = "logfmt" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModelParams(t *testing.T) {
	cfg := Default()
	cfg.Model.Beta = 0.3
	cfg.Solver.Tolerance = 1e-6

	p := cfg.ModelParams()
	assert.Equal(t, 0.3, p.Beta)
	assert.Equal(t, 1e-6, p.Tolerance)
	assert.Equal(t, cfg.Solver.MaxIter, p.MaxIter)
}
