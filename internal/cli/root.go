// Package cli is the influxjson command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"influxjson/internal/config"
	"influxjson/internal/influx"
	"influxjson/internal/output"
	"influxjson/internal/progress"
	"influxjson/internal/secret"
	"influxjson/internal/service"
	"influxjson/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI bound to ctx and returns the process exit code.
func Execute(ctx context.Context) int {
	a := newApp(os.Stdout, os.Stderr)
	rootCmd := newRootCmd(a)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries the resolved configuration and I/O for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	format     string

	flags flagValues

	// replaced in tests
	newExecutor func(influx.Options) (influx.Executor, error)
	fileSecrets secret.SecretStore
	keychain    secret.SecretStore
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:      stdout,
		stderr:      stderr,
		newExecutor: influx.NewExecutor,
		fileSecrets: secret.FileStore{},
		keychain:    secret.NewKeychainStore(),
	}
}

// flagValues holds the raw flag values; only flags the user set are applied.
type flagValues struct {
	database     string
	executor     string
	influxBin    string
	host         string
	port         int
	url          string
	username     string
	password     string
	passwordFile string
	keychain     string
	outputDir    string
	ledgerPath   string
	pageSize     int
	rateLimit    float64
	queryTimeout time.Duration
	measurements []string
	logLevel     string
	logFormat    string
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "influxjson",
		Short: "Export InfluxDB measurements to JSON files",
		Long: "Export every measurement of an InfluxDB 1.x database to one pretty-printed\n" +
			"JSON document per measurement (data_json/<measurement>.json).",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	f := &a.flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&a.format, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&f.database, "database", "d", "", "InfluxDB database name (default solar_assistant)")
	pf.StringVar(&f.executor, "executor", "", "How to reach InfluxDB: cli or http (default cli)")
	pf.StringVar(&f.influxBin, "influx-bin", "", "Path to the influx CLI binary")
	pf.StringVar(&f.host, "host", "", "InfluxDB host (cli executor)")
	pf.IntVar(&f.port, "port", 0, "InfluxDB port (cli executor)")
	pf.StringVar(&f.url, "url", "", "InfluxDB base URL (http executor)")
	pf.StringVarP(&f.username, "username", "u", "", "InfluxDB username")
	pf.StringVarP(&f.password, "password", "p", "", "InfluxDB password")
	pf.StringVar(&f.passwordFile, "password-file", "", "Read the InfluxDB password from this file")
	pf.StringVar(&f.keychain, "password-keychain", "", "Read the InfluxDB password from this macOS Keychain account")
	pf.StringVar(&f.outputDir, "output-dir", "", "Directory for JSON documents (default data_json)")
	pf.StringVar(&f.ledgerPath, "ledger", "", "SQLite run ledger path (empty disables)")
	pf.IntVar(&f.pageSize, "page-size", 0, "Rows per page query (0 = unbounded)")
	pf.Float64Var(&f.rateLimit, "rate-limit", 0, "Max queries per second (0 = unlimited)")
	pf.DurationVar(&f.queryTimeout, "query-timeout", 0, "Per-query timeout (0 = none)")
	pf.StringSliceVarP(&f.measurements, "measurement", "m", nil, "Only export these measurements (repeatable)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newMeasurementsCmd(a))
	rootCmd.AddCommand(newCountCmd(a))
	rootCmd.AddCommand(newRunsCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

// resolve applies precedence flag > env > file > default and builds the logger.
func (a *app) resolve(cmd *cobra.Command) error {
	if a.format != "table" && a.format != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", a.format)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	f := a.flags
	changed := cmd.Flags().Changed
	if changed("database") {
		cfg.Database = f.database
	}
	if changed("executor") {
		cfg.Executor = f.executor
	}
	if changed("influx-bin") {
		cfg.InfluxBin = f.influxBin
	}
	if changed("host") {
		cfg.Host = f.host
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("url") {
		cfg.URL = f.url
	}
	if changed("username") {
		cfg.Username = f.username
	}
	if changed("password") {
		cfg.Password = f.password
	}
	if changed("password-file") {
		cfg.PasswordFile = f.passwordFile
	}
	if changed("password-keychain") {
		cfg.PasswordKeychain = f.keychain
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("ledger") {
		cfg.LedgerPath = f.ledgerPath
	}
	if changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if changed("query-timeout") {
		cfg.QueryTimeout = f.queryTimeout
	}
	if changed("measurement") {
		cfg.Measurements = f.measurements
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.resolvePassword(cmd.Context(), cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(a.stderr)
	return nil
}

// resolvePassword fills cfg.Password from a secret store when it is unset.
func (a *app) resolvePassword(ctx context.Context, cfg *config.Config) error {
	if cfg.Password != "" {
		return nil
	}
	var (
		store secret.SecretStore
		key   string
	)
	switch {
	case cfg.PasswordFile != "":
		store, key = a.fileSecrets, cfg.PasswordFile
	case cfg.PasswordKeychain != "":
		store, key = a.keychain, cfg.PasswordKeychain
	default:
		return nil
	}
	pw, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve password: %w", err)
	}
	cfg.Password = string(pw)
	return nil
}

// progressReporter draws a bar when stderr is a terminal.
func (a *app) progressReporter() progress.Reporter {
	if f, ok := a.stderr.(*os.File); ok {
		return progress.Auto(f, a.logger)
	}
	return progress.NewLogReporter(a.logger)
}

// newService builds the export service. The returned cleanup closes the ledger.
func (a *app) newService(emitter service.EventEmitter) (*service.ExportService, func(), error) {
	exec, err := a.newExecutor(a.cfg.ExecutorOptions())
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var store *storage.ExportStore
	if a.cfg.LedgerPath != "" {
		db, err := storage.New(a.cfg.LedgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open ledger: %w", err)
		}
		store = storage.NewExportStore(db)
		cleanup = func() {
			if err := db.Close(); err != nil {
				a.logger.Warn("close ledger", "error", err)
			}
		}
	}

	svc := service.NewExportService(
		exec,
		output.NewJSONWriter(a.cfg.OutputDir),
		store,
		a.progressReporter(),
		emitter,
		a.logger,
		service.Options{
			Database:  a.cfg.Database,
			Executor:  a.cfg.Executor,
			OutputDir: a.cfg.OutputDir,
			PageSize:  a.cfg.PageSize,
			Include:   a.cfg.Measurements,
		},
	)
	return svc, cleanup, nil
}
