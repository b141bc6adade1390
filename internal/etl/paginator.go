package etl

import (
	"context"
	"fmt"

	"influxjson/internal/domain"
	"influxjson/internal/influx"
	"influxjson/internal/progress"
)

// ── Paginator ──────────────────────────────────────────────
// Walks one measurement with SELECT * ... OFFSET n until the accumulated
// rows reach the expected total, or a page fails, or a page adds nothing.

// State is the Paginator's position in its walk.
type State int

const (
	StateAccumulating State = iota
	StateDone
	StateAborted
	StateNoProgress
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateNoProgress:
		return "no_progress"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further Step will issue a query.
func (s State) Terminal() bool { return s != StateAccumulating }

// Paginator holds the walk state for one measurement.
// The next offset is always len(records).
type Paginator struct {
	exec        influx.Executor
	measurement string
	total       int64
	pageSize    int
	tracker     progress.Tracker

	records []domain.Record
	pages   int
	state   State
	err     error
}

// NewPaginator prepares a walk over measurement expecting total rows.
// pageSize > 0 adds a LIMIT to every page query. tracker may be nil.
func NewPaginator(exec influx.Executor, measurement string, total int64, pageSize int, tracker progress.Tracker) *Paginator {
	if tracker == nil {
		tracker = progress.Nop().Begin(measurement, total)
	}
	return &Paginator{
		exec:        exec,
		measurement: measurement,
		total:       total,
		pageSize:    pageSize,
		tracker:     tracker,
	}
}

// Step advances the walk by at most one query and returns the new state.
func (p *Paginator) Step(ctx context.Context) State {
	if p.state.Terminal() {
		return p.state
	}

	// A fully fetched document is complete even if ctx is already done.
	if int64(len(p.records)) >= p.total {
		p.state = StateDone
		return p.state
	}
	if err := ctx.Err(); err != nil {
		return p.cancel(err)
	}

	offset := len(p.records)
	query := influx.SelectQuery(p.measurement, offset, p.pageSize)
	raw, err := p.exec.Execute(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.cancel(ctxErr)
		}
		return p.abort(fmt.Errorf("page at offset %d: %w", offset, err))
	}

	batch, err := decodePage(query, raw)
	if err != nil {
		return p.abort(fmt.Errorf("page at offset %d: %w", offset, err))
	}
	p.pages++

	if len(batch) == 0 {
		p.state = StateNoProgress
		p.err = fmt.Errorf("%w: page at offset %d returned no rows, expected %d",
			ErrNoProgress, offset, p.total)
		return p.state
	}

	p.records = append(p.records, batch...)
	p.tracker.Set(int64(len(p.records)))
	return p.state
}

// Run steps until a terminal state is reached.
func (p *Paginator) Run(ctx context.Context) State {
	for !p.Step(ctx).Terminal() {
	}
	return p.state
}

func (p *Paginator) abort(err error) State {
	p.state = StateAborted
	p.err = err
	return p.state
}

// cancel drops the accumulated rows; a cancelled document is never written.
func (p *Paginator) cancel(err error) State {
	p.state = StateCancelled
	p.err = err
	p.records = nil
	return p.state
}

// Records returns the rows accumulated so far, in fetch order.
func (p *Paginator) Records() []domain.Record { return p.records }

// Offset is the offset the next page query will use.
func (p *Paginator) Offset() int { return len(p.records) }

// Pages counts the page queries that returned a decodable response.
func (p *Paginator) Pages() int { return p.pages }

func (p *Paginator) State() State { return p.state }

// Err explains an Aborted, NoProgress or Cancelled state.
func (p *Paginator) Err() error { return p.err }

// decodePage reshapes every series of every statement in a page response.
func decodePage(query string, raw []byte) ([]domain.Record, error) {
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if msg := resp.FirstError(); msg != "" {
		return nil, responseFailure(query, msg)
	}

	var out []domain.Record
	for _, res := range resp.Results {
		for _, s := range res.Series {
			out = append(out, Reshape(s)...)
		}
	}
	return out, nil
}
