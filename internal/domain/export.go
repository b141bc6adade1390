package domain

import "time"

// MeasurementStatus is the outcome of exporting one measurement.
type MeasurementStatus string

const (
	// StatusComplete: every expected row was fetched and the file was written.
	StatusComplete MeasurementStatus = "complete"
	// StatusPartial: a page failed mid-walk; the rows fetched so far were written.
	StatusPartial MeasurementStatus = "partial"
	// StatusNoProgress: a page came back empty before the expected count was reached;
	// the rows fetched so far were written.
	StatusNoProgress MeasurementStatus = "no_progress"
	// StatusSkipped: the row count could not be resolved; nothing was written.
	StatusSkipped MeasurementStatus = "skipped"
	// StatusCancelled: the run was cancelled while paging; nothing was written.
	StatusCancelled MeasurementStatus = "cancelled"
	// StatusWriteFailed: the document could not be written to disk.
	StatusWriteFailed MeasurementStatus = "write_failed"
)

// Written reports whether the status implies an output file exists.
func (s MeasurementStatus) Written() bool {
	switch s {
	case StatusComplete, StatusPartial, StatusNoProgress:
		return true
	default:
		return false
	}
}

// MeasurementResult records what happened to one measurement during a run.
type MeasurementResult struct {
	ID           string            `json:"id"`
	RunID        string            `json:"runId"`
	Measurement  string            `json:"measurement"`
	Status       MeasurementStatus `json:"status"`
	ExpectedRows int64             `json:"expectedRows"`
	RowsWritten  int               `json:"rowsWritten"`
	Pages        int               `json:"pages"`
	OutputPath   string            `json:"outputPath,omitempty"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"startedAt"`
	FinishedAt   time.Time         `json:"finishedAt"`
}

// RunStatus is the overall outcome of an export run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSuccess   RunStatus = "success"
	RunDegraded  RunStatus = "degraded" // finished, but some measurements are skipped, partial or failed
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ExportRun is one invocation of the exporter against a database.
type ExportRun struct {
	ID                   string    `json:"id"`
	Database             string    `json:"database"`
	Executor             string    `json:"executor"`
	OutputDir            string    `json:"outputDir"`
	Status               RunStatus `json:"status"`
	MeasurementsTotal    int       `json:"measurementsTotal"`
	MeasurementsComplete int       `json:"measurementsComplete"`
	RowsWritten          int       `json:"rowsWritten"`
	Error                string    `json:"error,omitempty"`
	StartedAt            time.Time `json:"startedAt"`
	FinishedAt           time.Time `json:"finishedAt"`
}

// Summarize derives the run counters and status from its measurement results.
// runErr is the run-fatal error, if any.
func (r *ExportRun) Summarize(results []MeasurementResult, runErr error, cancelled bool) {
	r.MeasurementsTotal = len(results)
	r.MeasurementsComplete = 0
	r.RowsWritten = 0
	degraded := false
	for _, res := range results {
		if res.Status == StatusComplete {
			r.MeasurementsComplete++
		} else {
			degraded = true
		}
		if res.Status.Written() {
			r.RowsWritten += res.RowsWritten
		}
	}

	switch {
	case cancelled:
		r.Status = RunCancelled
	case runErr != nil:
		r.Status = RunFailed
	case degraded:
		r.Status = RunDegraded
	default:
		r.Status = RunSuccess
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
}
