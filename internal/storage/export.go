package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"influxjson/internal/domain"
)

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("export run not found")

// ExportStore persists export runs and per-measurement outcomes.
type ExportStore struct {
	db *DB
}

// NewExportStore creates a new ExportStore.
func NewExportStore(db *DB) *ExportStore {
	return &ExportStore{db: db}
}

// ── Runs ───────────────────────────────────────────────────

const runColumns = `id, database_name, executor, output_dir, status, measurements_total,
	measurements_complete, rows_written, error, started_at, finished_at`

// CreateRun assigns an ID and inserts run in the running state.
func (s *ExportStore) CreateRun(run *domain.ExportRun) error {
	run.ID = uuid.New().String()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = domain.RunRunning

	_, err := s.db.conn.Exec(
		`INSERT INTO export_runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Database, run.Executor, run.OutputDir, run.Status,
		run.MeasurementsTotal, run.MeasurementsComplete, run.RowsWritten,
		run.Error, run.StartedAt, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of run.
func (s *ExportStore) FinishRun(run *domain.ExportRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.db.conn.Exec(
		`UPDATE export_runs SET status=?, measurements_total=?, measurements_complete=?,
		 rows_written=?, error=?, finished_at=? WHERE id=?`,
		run.Status, run.MeasurementsTotal, run.MeasurementsComplete,
		run.RowsWritten, run.Error, run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

func (s *ExportStore) GetRun(id string) (*domain.ExportRun, error) {
	row := s.db.conn.QueryRow(`SELECT `+runColumns+` FROM export_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *ExportStore) ListRuns(limit int) ([]domain.ExportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.conn.Query(
		`SELECT `+runColumns+` FROM export_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.ExportRun, error) {
	var run domain.ExportRun
	var status string
	if err := sc.Scan(
		&run.ID, &run.Database, &run.Executor, &run.OutputDir, &status,
		&run.MeasurementsTotal, &run.MeasurementsComplete, &run.RowsWritten,
		&run.Error, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	return &run, nil
}

// ── Measurement results ────────────────────────────────────

// RecordMeasurement assigns an ID and stores one measurement outcome.
func (s *ExportStore) RecordMeasurement(res *domain.MeasurementResult) error {
	if res.RunID == "" {
		return fmt.Errorf("record measurement %q: missing run id", res.Measurement)
	}
	res.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO export_measurements (id, run_id, measurement, status, expected_rows,
		 rows_written, pages, output_path, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.RunID, res.Measurement, res.Status, res.ExpectedRows,
		res.RowsWritten, res.Pages, res.OutputPath, res.Error, res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record measurement %q: %w", res.Measurement, err)
	}
	return nil
}

// ListMeasurementResults returns the outcomes of a run in processing order.
func (s *ExportStore) ListMeasurementResults(runID string) ([]domain.MeasurementResult, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, run_id, measurement, status, expected_rows, rows_written, pages,
		 output_path, error, started_at, finished_at
		 FROM export_measurements WHERE run_id = ? ORDER BY rowid ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.MeasurementResult
	for rows.Next() {
		var r domain.MeasurementResult
		var status string
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Measurement, &status, &r.ExpectedRows,
			&r.RowsWritten, &r.Pages, &r.OutputPath, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, err
		}
		r.Status = domain.MeasurementStatus(status)
		results = append(results, r)
	}
	return results, rows.Err()
}
