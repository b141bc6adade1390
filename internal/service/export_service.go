package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"influxjson/internal/domain"
	"influxjson/internal/etl"
	"influxjson/internal/influx"
	"influxjson/internal/progress"
	"influxjson/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// ExportService: runs exports and records them in the ledger
// ─────────────────────────────────────────────────────────────

// ErrRunInProgress is returned when an export of the same database is running.
var ErrRunInProgress = errors.New("export already running")

// Options configures an ExportService.
type Options struct {
	Database  string
	Executor  string
	OutputDir string
	PageSize  int
	Include   []string
}

// Report is the outcome of one run.
type Report struct {
	Run     domain.ExportRun           `json:"run"`
	Results []domain.MeasurementResult `json:"results"`
}

// ExportService wires an Executor, a Writer and the optional ledger together.
type ExportService struct {
	exec     influx.Executor
	writer   etl.Writer
	store    *storage.ExportStore // nil disables the ledger
	progress progress.Reporter
	emitter  EventEmitter
	logger   *slog.Logger
	opts     Options

	running runGuard
}

// NewExportService creates an ExportService. store, reporter and emitter may be nil.
func NewExportService(
	exec influx.Executor,
	writer etl.Writer,
	store *storage.ExportStore,
	reporter progress.Reporter,
	emitter EventEmitter,
	logger *slog.Logger,
	opts Options,
) *ExportService {
	if reporter == nil {
		reporter = progress.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = LogEmitter{Logger: logger}
	}
	return &ExportService{
		exec:     exec,
		writer:   writer,
		store:    store,
		progress: reporter,
		emitter:  emitter,
		logger:   logger,
		opts:     opts,
	}
}

func (s *ExportService) exporter() *etl.Exporter {
	return &etl.Exporter{
		Exec:     s.exec,
		Writer:   s.writer,
		Progress: s.progress,
		Logger:   s.logger,
		PageSize: s.opts.PageSize,
		Include:  s.opts.Include,
	}
}

// ── Queries ────────────────────────────────────────────────

// ListMeasurements returns the measurement names of the database.
func (s *ExportService) ListMeasurements(ctx context.Context) ([]string, error) {
	return s.exporter().ListMeasurements(ctx)
}

// ResolveCount returns the row count of one measurement.
func (s *ExportService) ResolveCount(ctx context.Context, measurement string) (int64, error) {
	return s.exporter().ResolveCount(ctx, measurement)
}

// ── Runs ───────────────────────────────────────────────────

// RunOnce performs one full export. The returned Report is non-nil whenever
// the run started, even if err is set.
func (s *ExportService) RunOnce(ctx context.Context) (*Report, error) {
	if !s.running.TryLock(s.opts.Database) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, s.opts.Database)
	}
	defer s.running.Unlock(s.opts.Database)

	run := &domain.ExportRun{
		Database:  s.opts.Database,
		Executor:  s.opts.Executor,
		OutputDir: s.opts.OutputDir,
		StartedAt: time.Now(),
	}
	if s.store != nil {
		if err := s.store.CreateRun(run); err != nil {
			return nil, err
		}
	} else {
		run.ID = uuid.New().String()
		run.Status = domain.RunRunning
	}
	logger := s.logger.With("run", run.ID, "database", run.Database)
	logger.Info("export started")

	exp := s.exporter()
	exp.Logger = logger
	exp.OnResult = func(res *domain.MeasurementResult) {
		res.RunID = run.ID
		if s.store != nil {
			if err := s.store.RecordMeasurement(res); err != nil {
				logger.Error("ledger write failed", "measurement", res.Measurement, "error", err)
			}
		}
		s.emitter.Emit(ctx, EventMeasurementDone, *res)
	}

	results, runErr := exp.Run(ctx)

	cancelled := errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)
	run.Summarize(results, runErr, cancelled)
	run.FinishedAt = time.Now()

	if s.store != nil {
		if err := s.store.FinishRun(run); err != nil {
			logger.Error("ledger write failed", "error", err)
		}
	}

	report := &Report{Run: *run, Results: results}
	logger.Info("export finished",
		"status", run.Status,
		"measurements", run.MeasurementsTotal,
		"complete", run.MeasurementsComplete,
		"rows", run.RowsWritten,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
	s.emitter.Emit(ctx, EventRunFinished, report)
	return report, runErr
}

// Schedule runs an export on every tick of the cron expression until ctx is
// cancelled, then waits for an in-flight run to finish. A tick that fires
// while the previous run is still going is skipped.
func (s *ExportService) Schedule(ctx context.Context, expr string) error {
	c := cron.New()
	if _, err := c.AddFunc(expr, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	c.Start()
	s.logger.Info("export scheduled", "schedule", expr, "database", s.opts.Database)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *ExportService) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("skipping scheduled export, previous run still in progress",
			"database", s.opts.Database)
		s.emitter.Emit(ctx, EventRunSkipped, s.opts.Database)
	case err != nil:
		s.logger.Error("scheduled export failed", "error", err)
	}
}

// WaitRunning blocks until the in-flight run finishes or ctx is cancelled.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// ── Ledger ─────────────────────────────────────────────────

// ErrNoLedger is returned by history queries when no ledger is configured.
var ErrNoLedger = errors.New("run ledger is disabled (set ledger_path)")

// Runs lists recent runs, newest first.
func (s *ExportService) Runs(limit int) ([]domain.ExportRun, error) {
	if s.store == nil {
		return nil, ErrNoLedger
	}
	return s.store.ListRuns(limit)
}

// RunDetail returns one run and its per-measurement outcomes.
func (s *ExportService) RunDetail(id string) (*Report, error) {
	if s.store == nil {
		return nil, ErrNoLedger
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	results, err := s.store.ListMeasurementResults(id)
	if err != nil {
		return nil, err
	}
	return &Report{Run: *run, Results: results}, nil
}
