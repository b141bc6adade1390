package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influxjson/internal/influx"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "influxjson.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "solar_assistant", cfg.Database)
	assert.Equal(t, "cli", cfg.Executor)
	assert.Equal(t, "influx", cfg.InfluxBin)
	assert.Equal(t, "data_json", cfg.OutputDir)
	assert.Equal(t, "http://localhost:8086", cfg.URL)
	assert.Empty(t, cfg.LedgerPath)
	assert.Zero(t, cfg.PageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
database: home
executor: http
url: http://influx:8086
page_size: 500
rate_limit: 2.5
query_timeout: 30s
measurements: [cpu, "grid power"]
log_format: json
`)
	t.Setenv("INFLUXJSON_DATABASE", "override")
	t.Setenv("INFLUXJSON_PAGE_SIZE", "100")
	t.Setenv("INFLUXJSON_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Database, "env wins over file")
	assert.Equal(t, "http", cfg.Executor)
	assert.Equal(t, "http://influx:8086", cfg.URL)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, []string{"cpu", "grid power"}, cfg.Measurements)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "data_json", cfg.OutputDir, "unset keys keep defaults")
}

func TestLoad_EnvLists(t *testing.T) {
	t.Setenv("INFLUXJSON_MEASUREMENTS", " cpu, ,mem ")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu", "mem"}, cfg.Measurements)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("INFLUXJSON_PORT", "abc")
	t.Setenv("INFLUXJSON_QUERY_TIMEOUT", "soon")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFLUXJSON_PORT")
	assert.Contains(t, err.Error(), "INFLUXJSON_QUERY_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "page_size: [1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty database", func(c *Config) { c.Database = " " }, "database is required"},
		{"unknown executor", func(c *Config) { c.Executor = "grpc" }, "executor must be"},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, "page_size"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"negative timeout", func(c *Config) { c.QueryTimeout = -time.Second }, "query_timeout"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"schedule and watch", func(c *Config) { c.Schedule, c.Watch = "@daily", "done.flag" }, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	} {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "info", LogFormat: "json"}
	cfg.NewLogger(&buf).Info("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg.NewLogger(&buf).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestExecutorOptions(t *testing.T) {
	cfg := Default()
	cfg.Executor = "http"
	cfg.Port = 8086
	cfg.QueryTimeout = time.Minute
	cfg.RateLimit = 4

	opts := cfg.ExecutorOptions()
	assert.Equal(t, influx.ModeHTTP, opts.Mode)
	assert.Equal(t, "solar_assistant", opts.Database)
	assert.Equal(t, 8086, opts.Port)
	assert.Equal(t, time.Minute, opts.Timeout)
	assert.Equal(t, 4.0, opts.RateLimit)
}
