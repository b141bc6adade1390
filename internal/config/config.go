// Package config loads exporter settings from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"influxjson/internal/influx"
	"influxjson/internal/output"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "INFLUXJSON_"

// Config holds every exporter setting.
type Config struct {
	Database string `yaml:"database"`

	// Executor selects how queries reach the database: "cli" or "http".
	Executor  string `yaml:"executor"`
	InfluxBin string `yaml:"influx_bin"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	URL       string `yaml:"url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`

	// Used only when Password is empty, file first.
	PasswordFile     string `yaml:"password_file"`
	PasswordKeychain string `yaml:"password_keychain"` // macOS Keychain account

	OutputDir  string `yaml:"output_dir"`
	LedgerPath string `yaml:"ledger_path"` // empty disables the run ledger

	PageSize     int           `yaml:"page_size"`     // 0 = unbounded pages
	RateLimit    float64       `yaml:"rate_limit"`    // queries per second, 0 = unlimited
	QueryTimeout time.Duration `yaml:"query_timeout"` // 0 = none

	Measurements []string `yaml:"measurements"` // allow-list, empty = all
	Schedule     string   `yaml:"schedule"`     // cron expression, empty = one-shot
	Watch        string   `yaml:"watch"`        // trigger file; export on every write

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:  "solar_assistant",
		Executor:  string(influx.ModeCLI),
		InfluxBin: "influx",
		URL:       "http://localhost:8086",
		OutputDir: output.DefaultDir,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load layers the YAML file at path (when non-empty) and then INFLUXJSON_*
// environment variables over the defaults. Flags are applied by the caller.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the fields present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays the INFLUXJSON_* variables that are set and non-empty.
func (c *Config) LoadEnv() error {
	str := map[string]*string{
		"DATABASE":          &c.Database,
		"EXECUTOR":          &c.Executor,
		"INFLUX_BIN":        &c.InfluxBin,
		"HOST":              &c.Host,
		"URL":               &c.URL,
		"USERNAME":          &c.Username,
		"PASSWORD":          &c.Password,
		"PASSWORD_FILE":     &c.PasswordFile,
		"PASSWORD_KEYCHAIN": &c.PasswordKeychain,
		"OUTPUT_DIR":        &c.OutputDir,
		"LEDGER_PATH":       &c.LedgerPath,
		"SCHEDULE":          &c.Schedule,
		"WATCH":             &c.Watch,
		"LOG_LEVEL":         &c.LogLevel,
		"LOG_FORMAT":        &c.LogFormat,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errs []error
	if v, ok := lookup("PORT"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envError("PORT", err))
		c.Port = n
	}
	if v, ok := lookup("PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envError("PAGE_SIZE", err))
		c.PageSize = n
	}
	if v, ok := lookup("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		errs = append(errs, envError("RATE_LIMIT", err))
		c.RateLimit = f
	}
	if v, ok := lookup("QUERY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, envError("QUERY_TIMEOUT", err))
		c.QueryTimeout = d
	}
	if v, ok := lookup("MEASUREMENTS"); ok {
		c.Measurements = SplitList(v)
	}
	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envError(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, fmt.Errorf("database is required"))
	}
	switch influx.Mode(c.Executor) {
	case influx.ModeCLI, influx.ModeHTTP:
	default:
		errs = append(errs, fmt.Errorf("executor must be %q or %q, got %q", influx.ModeCLI, influx.ModeHTTP, c.Executor))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page_size must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, fmt.Errorf("query_timeout must not be negative"))
	}
	if c.Schedule != "" && c.Watch != "" {
		errs = append(errs, fmt.Errorf("schedule and watch are mutually exclusive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ExecutorOptions converts the connection settings for influx.NewExecutor.
func (c *Config) ExecutorOptions() influx.Options {
	return influx.Options{
		Mode:      influx.Mode(c.Executor),
		Database:  c.Database,
		Binary:    c.InfluxBin,
		Host:      c.Host,
		Port:      c.Port,
		URL:       c.URL,
		Username:  c.Username,
		Password:  c.Password,
		Timeout:   c.QueryTimeout,
		RateLimit: c.RateLimit,
	}
}
