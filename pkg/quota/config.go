package quota

import (
	"errors"
	"time"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/retry"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Config is read from QUOTA_* environment variables through pkg/config.
type Config struct {
	Timezone         string        `env:"QUOTA_TIMEZONE" envDefault:"UTC"`
	RetryAttempts    int           `env:"QUOTA_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"QUOTA_RETRY_INTERVAL" envDefault:"50ms"`
	RetryMaxInterval time.Duration `env:"QUOTA_RETRY_MAX_INTERVAL" envDefault:"1s"`
	RetryJitter      float64       `env:"QUOTA_RETRY_JITTER" envDefault:"0.2"`
}

// RetryPolicy builds the optimistic retry policy described by c.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryAttempts,
		Backoff: retry.LinearBackoff{
			Interval:     c.RetryInterval,
			MaxInterval:  c.RetryMaxInterval,
			JitterFactor: c.RetryJitter,
		},
	}
}

// NewFromConfig builds a Ledger whose clock runs in cfg.Timezone. opts are
// applied after the config-derived ones.
func NewFromConfig(cfg Config, store wallet.Store, policy planpolicy.Policy, opts ...Option) (*Ledger, error) {
	clock, err := billingclock.NewInZone(cfg.Timezone)
	if err != nil {
		return nil, errors.Join(ErrInvalidArgument, err)
	}
	base := []Option{WithClock(clock), WithRetryPolicy(cfg.RetryPolicy())}
	return New(store, policy, append(base, opts...)...), nil
}
