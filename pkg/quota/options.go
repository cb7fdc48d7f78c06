package quota

import (
	"log/slog"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/retry"
)

// Option configures a Ledger in New.
type Option func(*Ledger)

// WithClock sets the reference clock. Defaults to the wall clock in UTC.
func WithClock(c billingclock.Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLogger sets the structured logger. The ledger tags it with
// component=quota. Defaults to a logger that discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithRetryPolicy bounds the reconcile loop. OnConflict is overwritten by
// the ledger.
func WithRetryPolicy(p retry.Policy) Option {
	return func(l *Ledger) { l.retry = p }
}

// WithObserver registers o to receive consume, refund, conflict and
// transition events. A nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(l *Ledger) {
		if o != nil {
			l.observer = o
		}
	}
}
