package influx

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced throttles an Executor with a token bucket so a long export does
// not saturate the database.
type Paced struct {
	next    Executor
	limiter *rate.Limiter
}

// NewPaced allows at most perSecond queries per second through next.
func NewPaced(next Executor, perSecond float64) *Paced {
	return &Paced{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (p *Paced) Execute(ctx context.Context, query string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ExecError{Query: query, Err: err}
	}
	return p.next.Execute(ctx, query)
}

func (p *Paced) ListMeasurements(ctx context.Context) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ExecError{Query: ShowMeasurements, Err: err}
	}
	return p.next.ListMeasurements(ctx)
}
