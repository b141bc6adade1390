package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"influxjson/internal/domain"
	"influxjson/internal/influx"
	"influxjson/internal/progress"
)

// ── Writer ─────────────────────────────────────────────────

// Writer persists one measurement document.
type Writer interface {
	// Prepare is called once per run before any Write.
	Prepare() error
	// Write stores records for measurement and returns the artifact path.
	Write(measurement string, records []domain.Record) (string, error)
}

// ── Exporter ───────────────────────────────────────────────
// Orchestrates: list → for each measurement: count → paginate → write.
// Measurements are processed one at a time, in listing order.

// Exporter runs a full export against one Executor.
type Exporter struct {
	Exec     influx.Executor
	Writer   Writer
	Progress progress.Reporter
	Logger   *slog.Logger

	// PageSize adds LIMIT n to page queries. Zero fetches each page unbounded.
	PageSize int
	// Include restricts the run to these measurements. Empty exports all.
	Include []string
	// OnResult is called after each measurement, cancelled ones included.
	// It receives the stored result and may fill in IDs.
	OnResult func(*domain.MeasurementResult)
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Exporter) progress() progress.Reporter {
	if e.Progress == nil {
		return progress.Nop()
	}
	return e.Progress
}

// ListMeasurements returns measurement names in source order.
func (e *Exporter) ListMeasurements(ctx context.Context) ([]string, error) {
	raw, err := e.Exec.ListMeasurements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	names, err := ParseMeasurements(raw)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return names, nil
}

// ResolveCount returns the number of rows stored in measurement.
func (e *Exporter) ResolveCount(ctx context.Context, measurement string) (int64, error) {
	raw, err := e.Exec.Execute(ctx, influx.CountQuery(measurement))
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", measurement, err)
	}
	n, err := ParseCount(raw)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", measurement, err)
	}
	return n, nil
}

// ExportMeasurement exports one measurement. Failures are reported in the
// result, never returned.
func (e *Exporter) ExportMeasurement(ctx context.Context, measurement string) domain.MeasurementResult {
	res := domain.MeasurementResult{Measurement: measurement, StartedAt: time.Now()}
	logger := e.logger().With("measurement", measurement)
	finish := func(status domain.MeasurementStatus, err error) domain.MeasurementResult {
		res.Status = status
		if err != nil {
			res.Error = err.Error()
		}
		res.FinishedAt = time.Now()
		return res
	}

	total, err := e.ResolveCount(ctx, measurement)
	if err != nil {
		if ctx.Err() != nil {
			return finish(domain.StatusCancelled, ctx.Err())
		}
		logger.Warn("skipping measurement, row count unavailable", "error", err)
		return finish(domain.StatusSkipped, err)
	}
	res.ExpectedRows = total
	logger.Debug("row count resolved", "rows", total)

	tracker := e.progress().Begin(measurement, total)
	p := NewPaginator(e.Exec, measurement, total, e.PageSize, tracker)
	state := p.Run(ctx)
	tracker.Finish()
	res.Pages = p.Pages()

	var status domain.MeasurementStatus
	switch state {
	case StateCancelled:
		logger.Warn("export cancelled, discarding partial document", "rows", len(p.Records()))
		return finish(domain.StatusCancelled, p.Err())
	case StateDone:
		status = domain.StatusComplete
	case StateAborted:
		status = domain.StatusPartial
		logger.Warn("page failed, writing partial document",
			"rows", len(p.Records()), "expected", total, "error", p.Err())
	case StateNoProgress:
		status = domain.StatusNoProgress
		logger.Warn("no forward progress, writing partial document",
			"rows", len(p.Records()), "expected", total)
	}

	path, err := e.Writer.Write(measurement, p.Records())
	if err != nil {
		logger.Error("write failed", "error", err)
		return finish(domain.StatusWriteFailed, errors.Join(p.Err(), err))
	}
	res.OutputPath = path
	res.RowsWritten = len(p.Records())
	logger.Info("measurement exported", "status", status, "rows", res.RowsWritten, "path", path)
	return finish(status, p.Err())
}

// Run exports every listed measurement and returns their results in order.
// A listing or preparation failure is returned before any measurement is
// processed. Cancellation stops the loop and returns the context error along
// with the results gathered so far.
func (e *Exporter) Run(ctx context.Context) ([]domain.MeasurementResult, error) {
	names, err := e.ListMeasurements(ctx)
	if err != nil {
		return nil, err
	}
	names = filterMeasurements(names, e.Include)
	e.logger().Info("measurements listed", "count", len(names))

	if err := e.Writer.Prepare(); err != nil {
		return nil, fmt.Errorf("prepare output: %w", err)
	}

	results := make([]domain.MeasurementResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := e.ExportMeasurement(ctx, name)
		results = append(results, res)
		if e.OnResult != nil {
			e.OnResult(&results[len(results)-1])
		}
		if res.Status == domain.StatusCancelled {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			return results, context.Canceled
		}
	}
	return results, nil
}

// filterMeasurements keeps names present in include, preserving listing order.
func filterMeasurements(names, include []string) []string {
	if len(include) == 0 {
		return names
	}
	allowed := make(map[string]struct{}, len(include))
	for _, n := range include {
		allowed[n] = struct{}{}
	}
	out := names[:0:0]
	for _, n := range names {
		if _, ok := allowed[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
