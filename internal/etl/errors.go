package etl

import "errors"

// Failure kinds raised while extracting a measurement. Executor failures use
// influx.ErrExecutionFailure.
var (
	// ErrParseFailure: a response could not be decoded into the expected structure.
	ErrParseFailure = errors.New("response parse failure")

	// ErrCountUnavailable: the count response decoded but carried no per-field totals.
	ErrCountUnavailable = errors.New("row count unavailable")

	// ErrNoProgress: a page succeeded but added no rows before the expected count was reached.
	ErrNoProgress = errors.New("no forward progress")
)
