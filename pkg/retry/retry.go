package retry

import (
	"context"
	"time"
)

// Policy bounds an optimistic update loop.
type Policy struct {
	// MaxAttempts is the total number of read/commit cycles, including the
	// first one. Values below 1 are treated as 1.
	MaxAttempts int
	Backoff     Backoff
	// OnConflict, if set, is called after each lost race with the attempt
	// number that lost.
	OnConflict func(attempt int)
}

// DefaultPolicy allows three attempts with 50ms × attempt ±20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: LinearBackoff{
			Interval:     50 * time.Millisecond,
			MaxInterval:  time.Second,
			JitterFactor: 0.2,
		},
	}
}

// ReadFunc loads the current state.
type ReadFunc[T any] func(ctx context.Context) (T, error)

// ComputeFunc derives the next state from the current one. Returning
// changed=false ends the loop without a write.
type ComputeFunc[T any] func(current T) (next T, changed bool, err error)

// CommitFunc writes next only if the stored state still matches prev. It
// reports false when another writer got there first.
type CommitFunc[T any] func(ctx context.Context, prev, next T) (committed bool, err error)

// Update runs read → compute → conditional commit until the commit succeeds,
// compute reports no change, an error occurs, or the attempt budget is spent.
// It returns the committed (or unchanged current) state.
//
// Errors from read, compute and commit are returned as-is without retrying;
// only lost races are retried. Exhausting the budget returns ErrExhausted.
func Update[T any](ctx context.Context, p Policy, read ReadFunc[T], compute ComputeFunc[T], commit CommitFunc[T]) (T, error) {
	var zero T

	attempts := max(p.MaxAttempts, 1)
	backoff := p.Backoff
	if backoff == nil {
		backoff = NoBackoff{}
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := read(ctx)
		if err != nil {
			return zero, err
		}

		next, changed, err := compute(current)
		if err != nil {
			return zero, err
		}
		if !changed {
			return current, nil
		}

		ok, err := commit(ctx, current, next)
		if err != nil {
			return zero, err
		}
		if ok {
			return next, nil
		}

		if p.OnConflict != nil {
			p.OnConflict(attempt)
		}

		if attempt < attempts {
			if err := sleep(ctx, backoff.NextInterval(attempt)); err != nil {
				return zero, err
			}
		}
	}

	return zero, ErrExhausted
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
