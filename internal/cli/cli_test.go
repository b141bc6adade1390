package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influxjson/internal/influx"
	"influxjson/internal/secret"
)

// fakeExec answers from a fixed table of queries.
type fakeExec struct {
	listing   string
	responses map[string]string
}

func (f *fakeExec) ListMeasurements(context.Context) ([]byte, error) {
	return []byte(f.listing), nil
}

func (f *fakeExec) Execute(_ context.Context, query string) ([]byte, error) {
	if raw, ok := f.responses[query]; ok {
		return []byte(raw), nil
	}
	return nil, &influx.ExecError{Query: query, Err: errors.New("unexpected query")}
}

func sampleExec() *fakeExec {
	return &fakeExec{
		listing: "name: measurements\nname\n----\nbattery state\nbroken\n",
		responses: map[string]string{
			`SELECT COUNT(*) FROM "battery state"`:   `{"results":[{"series":[{"columns":["time","count_soc"],"values":[[0,2]]}]}]}`,
			`SELECT * FROM "battery state" OFFSET 0`: `{"results":[{"series":[{"columns":["time","soc"],"values":[["t0",91.5],["t1",90]]}]}]}`,
			`SELECT COUNT(*) FROM "broken"`:          `{"results":[{}]}`,
		},
	}
}

type harness struct {
	a      *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dir    string
	opts   *influx.Options
}

// newHarness isolates config and env so only args affect the run.
func newHarness(t *testing.T, exec influx.Executor) *harness {
	t.Helper()
	for _, k := range []string{"DATABASE", "OUTPUT_DIR", "LEDGER_PATH", "SCHEDULE", "WATCH", "EXECUTOR"} {
		t.Setenv("INFLUXJSON_"+k, "")
	}
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, dir: t.TempDir()}
	h.a = newApp(h.stdout, h.stderr)
	h.a.newExecutor = func(opts influx.Options) (influx.Executor, error) {
		h.opts = &opts
		return exec, nil
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.a)
	cmd.SetArgs(append([]string{"--output-dir", filepath.Join(h.dir, "data_json")}, args...))
	cmd.SetOut(h.stdout)
	cmd.SetErr(h.stderr)
	return cmd.ExecuteContext(context.Background())
}

func TestExport_WritesDocumentsAndSummary(t *testing.T) {
	h := newHarness(t, sampleExec())
	ledger := filepath.Join(h.dir, "runs.db")

	require.NoError(t, h.run("export", "--ledger", ledger, "-d", "home"))

	data, err := os.ReadFile(filepath.Join(h.dir, "data_json", "battery_state.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"time":"t0","soc":91.5},{"time":"t1","soc":90}]`, string(data))
	assert.NoFileExists(t, filepath.Join(h.dir, "data_json", "broken.json"))

	out := h.stdout.String()
	assert.Contains(t, out, "degraded, 1/2 measurements complete")
	assert.Contains(t, out, "battery state")
	assert.Contains(t, out, "skipped")
	assert.Equal(t, "home", h.opts.Database)

	h.stdout.Reset()
	require.NoError(t, h.run("runs", "--ledger", ledger, "-o", "json"))
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "degraded", runs[0]["status"])
	assert.Equal(t, "home", runs[0]["database"])

	h.stdout.Reset()
	id := runs[0]["id"].(string)
	require.NoError(t, h.run("runs", "show", id, "--ledger", ledger))
	assert.Contains(t, h.stdout.String(), "battery_state.json")
	assert.Contains(t, h.stdout.String(), "row count unavailable")
}

func TestExport_MeasurementFilter(t *testing.T) {
	h := newHarness(t, sampleExec())
	require.NoError(t, h.run("export", "-m", "battery state", "-o", "json"))

	var report struct {
		Run struct {
			Status string `json:"status"`
		} `json:"run"`
		Results []struct {
			Measurement string `json:"measurement"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &report))
	assert.Equal(t, "success", report.Run.Status)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "battery state", report.Results[0].Measurement)
}

func TestMeasurements(t *testing.T) {
	h := newHarness(t, sampleExec())
	require.NoError(t, h.run("measurements"))
	assert.Equal(t, "battery state\nbroken\n", h.stdout.String())
}

func TestCount(t *testing.T) {
	h := newHarness(t, sampleExec())
	require.NoError(t, h.run("count", "battery state"))
	assert.Equal(t, "2\n", h.stdout.String())

	err := h.run("count", "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count unavailable")
}

func TestRuns_WithoutLedger(t *testing.T) {
	h := newHarness(t, sampleExec())
	err := h.run("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	h := newHarness(t, sampleExec())
	cfgPath := filepath.Join(h.dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database: from_file\nexecutor: http\npage_size: 10\n"), 0o600))

	require.NoError(t, h.run("measurements", "--config", cfgPath, "--page-size", "50"))
	assert.Equal(t, "from_file", h.opts.Database)
	assert.Equal(t, influx.ModeHTTP, h.opts.Mode)
	assert.Equal(t, 50, h.a.cfg.PageSize)
}

func TestInvalidConfigRejected(t *testing.T) {
	h := newHarness(t, sampleExec())
	err := h.run("measurements", "--executor", "grpc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	err = h.run("measurements", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestExport_InvalidSchedule(t *testing.T) {
	h := newHarness(t, sampleExec())
	err := h.run("export", "--schedule", "whenever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestExport_ScheduleAndWatchExclusive(t *testing.T) {
	h := newHarness(t, sampleExec())
	err := h.run("export", "--schedule", "@daily", "--watch", filepath.Join(h.dir, "done.flag"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestVersion(t *testing.T) {
	h := newHarness(t, sampleExec())
	require.NoError(t, h.run("version"))
	assert.Contains(t, h.stdout.String(), "influxjson version dev")
}

func TestPasswordFromSecretStores(t *testing.T) {
	h := newHarness(t, sampleExec())
	t.Setenv("INFLUXJSON_PASSWORD", "")
	h.a.keychain = secret.MapStore{"influx-admin": "from-keychain"}

	require.NoError(t, h.run("measurements", "-u", "admin", "--password-keychain", "influx-admin"))
	assert.Equal(t, "from-keychain", h.opts.Password)

	pwFile := filepath.Join(h.dir, "pw")
	require.NoError(t, os.WriteFile(pwFile, []byte("from-file\n"), 0o600))
	require.NoError(t, h.run("measurements", "--password-file", pwFile, "--password-keychain", "influx-admin"))
	assert.Equal(t, "from-file", h.opts.Password, "file wins over keychain")

	require.NoError(t, h.run("measurements", "-p", "explicit", "--password-file", pwFile))
	assert.Equal(t, "explicit", h.opts.Password)

	err := h.run("measurements", "--password-keychain", "nobody")
	assert.ErrorIs(t, err, secret.ErrNotFound)
}
