package influx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrExecutionFailure marks any failure reported by an Executor.
var ErrExecutionFailure = errors.New("query execution failed")

// ExecError carries the query that failed and the error text captured from
// the database (stderr of the CLI, or the HTTP response body).
type ExecError struct {
	Query  string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "execute %q", e.Query)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ": %s", out)
	}
	return b.String()
}

func (e *ExecError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecutionFailure}
	}
	return []error{ErrExecutionFailure, e.Err}
}

// Executor runs InfluxQL against one database.
type Executor interface {
	// Execute runs query and returns the JSON-formatted response body.
	Execute(ctx context.Context, query string) ([]byte, error)

	// ListMeasurements returns the raw response to SHOW MEASUREMENTS.
	// The CLI executor returns the tabular text form, the HTTP executor JSON.
	ListMeasurements(ctx context.Context) ([]byte, error)
}

// Mode selects the Executor implementation.
type Mode string

const (
	ModeCLI  Mode = "cli"
	ModeHTTP Mode = "http"
)

// Options configures NewExecutor.
type Options struct {
	Mode     Mode
	Database string

	// CLI mode
	Binary string
	Host   string
	Port   int

	// HTTP mode
	URL string

	Username string
	Password string

	// Timeout bounds a single query. Zero means no timeout.
	Timeout time.Duration
	// RateLimit caps queries per second. Zero means unlimited.
	RateLimit float64
}

// NewExecutor creates the Executor described by opts.
func NewExecutor(opts Options) (Executor, error) {
	if opts.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	var exec Executor
	switch opts.Mode {
	case ModeCLI, "":
		exec = NewCLIExecutor(opts)
	case ModeHTTP:
		h, err := NewHTTPExecutor(opts)
		if err != nil {
			return nil, err
		}
		exec = h
	default:
		return nil, fmt.Errorf("unsupported executor mode: %s", opts.Mode)
	}

	if opts.RateLimit > 0 {
		exec = NewPaced(exec, opts.RateLimit)
	}
	return exec, nil
}

// withTimeout applies a per-query timeout when one is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
