package influx

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// ── CLI Executor ───────────────────────────────────────────
// Runs each query through a fresh `influx` process and captures its
// stdout and stderr separately.

// CLIExecutor shells out to the influx 1.x command line client.
type CLIExecutor struct {
	binary   string
	database string
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

// NewCLIExecutor creates a CLIExecutor. The binary defaults to "influx".
func NewCLIExecutor(opts Options) *CLIExecutor {
	bin := opts.Binary
	if bin == "" {
		bin = "influx"
	}
	return &CLIExecutor{
		binary:   resolveBinary(bin),
		database: opts.Database,
		host:     opts.Host,
		port:     opts.Port,
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
	}
}

// resolveBinary finds the absolute path for the client binary, falling back
// to the bare name so exec reports a clear "not found" error.
func resolveBinary(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

// Args returns the command line used for query. JSON output is requested
// unless tabular is set.
func (c *CLIExecutor) Args(query string, tabular bool) []string {
	args := []string{"-database", c.database}
	if c.host != "" {
		args = append(args, "-host", c.host)
	}
	if c.port > 0 {
		args = append(args, "-port", strconv.Itoa(c.port))
	}
	if c.username != "" {
		args = append(args, "-username", c.username)
	}
	if !tabular {
		args = append(args, "-format", "json")
	}
	return append(args, "-execute", query)
}

// passwordEnv is read by the influx client in place of -password.
const passwordEnv = "INFLUX_PASSWORD"

// Env returns the environment for the client process.
func (c *CLIExecutor) Env() []string {
	env := os.Environ()
	if c.password != "" {
		env = append(env, passwordEnv+"="+c.password)
	}
	return env
}

func (c *CLIExecutor) Execute(ctx context.Context, query string) ([]byte, error) {
	return c.run(ctx, query, false)
}

func (c *CLIExecutor) ListMeasurements(ctx context.Context) ([]byte, error) {
	return c.run(ctx, ShowMeasurements, true)
}

func (c *CLIExecutor) run(ctx context.Context, query string, tabular bool) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, c.Args(query, tabular)...)
	cmd.Env = c.Env()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ExecError{Query: query, Output: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}
