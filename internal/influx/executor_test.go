package influx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influxjson/internal/influx"
)

func TestEscapeIdentifier(t *testing.T) {
	assert.Equal(t, `weird\"name`, influx.EscapeIdentifier(`weird"name`))
	assert.Equal(t, "plain name", influx.EscapeIdentifier("plain name"))
}

func TestQueries(t *testing.T) {
	assert.Equal(t, `SELECT COUNT(*) FROM "weird\"name"`, influx.CountQuery(`weird"name`))
	assert.Equal(t, `SELECT * FROM "cpu" OFFSET 0`, influx.SelectQuery("cpu", 0, 0))
	assert.Equal(t, `SELECT * FROM "cpu" OFFSET 250`, influx.SelectQuery("cpu", 250, 0))
	assert.Equal(t, `SELECT * FROM "cpu" LIMIT 100 OFFSET 200`, influx.SelectQuery("cpu", 200, 100))
}

func TestCLIExecutor_Args(t *testing.T) {
	c := influx.NewCLIExecutor(influx.Options{
		Database: "solar_assistant",
		Host:     "db.local",
		Port:     8086,
		Username: "reader",
		Password: "secret",
	})

	assert.Equal(t, []string{
		"-database", "solar_assistant",
		"-host", "db.local",
		"-port", "8086",
		"-username", "reader",
		"-format", "json",
		"-execute", "SELECT 1",
	}, c.Args("SELECT 1", false))
	assert.NotContains(t, c.Args("SELECT 1", false), "secret")
	assert.Contains(t, c.Env(), "INFLUX_PASSWORD=secret")

	bare := influx.NewCLIExecutor(influx.Options{Database: "db"})
	for _, kv := range bare.Env() {
		assert.NotContains(t, kv, "INFLUX_PASSWORD=secret")
	}
	assert.Equal(t, []string{"-database", "db", "-execute", influx.ShowMeasurements},
		bare.Args(influx.ShowMeasurements, true))
}

func TestCLIExecutor_MissingBinaryIsExecutionFailure(t *testing.T) {
	c := influx.NewCLIExecutor(influx.Options{
		Database: "db",
		Binary:   "/nonexistent/influx-binary-for-tests",
	})

	_, err := c.Execute(context.Background(), "SHOW DATABASES")
	require.Error(t, err)
	assert.True(t, errors.Is(err, influx.ErrExecutionFailure))

	var execErr *influx.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SHOW DATABASES", execErr.Query)
}

func TestHTTPExecutor_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "solar_assistant", r.URL.Query().Get("db"))
		assert.Equal(t, `SELECT COUNT(*) FROM "cpu"`, r.URL.Query().Get("q"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "reader", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	h, err := influx.NewHTTPExecutor(influx.Options{
		Database: "solar_assistant",
		URL:      srv.URL,
		Username: "reader",
		Password: "secret",
	})
	require.NoError(t, err)
	h = h.WithClient(srv.Client())

	body, err := h.Execute(context.Background(), influx.CountQuery("cpu"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, string(body))
}

func TestHTTPExecutor_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"database not found: nope"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	h, err := influx.NewHTTPExecutor(influx.Options{Database: "nope", URL: srv.URL})
	require.NoError(t, err)

	_, err = h.ListMeasurements(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, influx.ErrExecutionFailure)

	var execErr *influx.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Output, "database not found")
}

func TestHTTPExecutor_WithClientOverTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"statement_id":0}]}`))
	}))
	defer srv.Close()

	h, err := influx.NewHTTPExecutor(influx.Options{Database: "db", URL: srv.URL})
	require.NoError(t, err)

	// the default client rejects the test server's self-signed certificate
	_, err = h.Execute(context.Background(), "SHOW DATABASES")
	require.Error(t, err)
	assert.ErrorIs(t, err, influx.ErrExecutionFailure)

	body, err := h.WithClient(srv.Client()).Execute(context.Background(), "SHOW DATABASES")
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"statement_id":0}]}`, string(body))
}

func TestHTTPExecutor_RejectsBadScheme(t *testing.T) {
	_, err := influx.NewHTTPExecutor(influx.Options{Database: "db", URL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestNewExecutor(t *testing.T) {
	_, err := influx.NewExecutor(influx.Options{})
	assert.Error(t, err, "database is required")

	_, err = influx.NewExecutor(influx.Options{Database: "db", Mode: "grpc"})
	assert.Error(t, err)

	exec, err := influx.NewExecutor(influx.Options{Database: "db"})
	require.NoError(t, err)
	assert.IsType(t, &influx.CLIExecutor{}, exec)

	exec, err = influx.NewExecutor(influx.Options{Database: "db", Mode: influx.ModeHTTP, RateLimit: 5})
	require.NoError(t, err)
	assert.IsType(t, &influx.Paced{}, exec)
}

type countingExecutor struct{ calls int }

func (c *countingExecutor) Execute(context.Context, string) ([]byte, error) {
	c.calls++
	return []byte(`{}`), nil
}

func (c *countingExecutor) ListMeasurements(context.Context) ([]byte, error) {
	c.calls++
	return nil, nil
}

func TestPaced_HonoursContext(t *testing.T) {
	next := &countingExecutor{}
	p := influx.NewPaced(next, 0.001)

	// The first token is available immediately.
	_, err := p.Execute(context.Background(), "q1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Execute(ctx, "q2")
	require.Error(t, err)
	assert.ErrorIs(t, err, influx.ErrExecutionFailure)
	assert.Equal(t, 1, next.calls)
}
