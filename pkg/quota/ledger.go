package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/lifecycle"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/retry"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Bounds on a single Consume, Refund or Check.
const (
	MinCount = 1
	MaxCount = 1000
)

// Ledger enforces daily build quotas and applies subscription changes to
// wallets held in a wallet.Store. It holds no per-user state and is safe for
// concurrent use; any number of Ledgers may share one store.
type Ledger struct {
	store     wallet.Store
	policy    planpolicy.Policy
	lifecycle *lifecycle.Lifecycle
	clock     billingclock.Clock
	log       *slog.Logger
	retry     retry.Policy
	observer  Observer
}

// New creates a Ledger over store, reading plan limits from policy.
// Without options it uses the wall clock in UTC, discards logs and retries
// conflicting writes with retry.DefaultPolicy. New panics if store or
// policy is nil.
func New(store wallet.Store, policy planpolicy.Policy, opts ...Option) *Ledger {
	if store == nil || policy == nil {
		panic("quota: store and policy are required")
	}

	l := &Ledger{
		store:    store,
		policy:   policy,
		clock:    billingclock.New(time.UTC),
		log:      logger.Discard(),
		retry:    retry.DefaultPolicy(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lifecycle = lifecycle.New(l.clock, policy)
	l.log = l.log.With(logger.Component("quota"))
	return l
}

// CheckResult is the answer to a Check. Used and Remaining are today's
// numbers in the reference timezone after any pending transition.
type CheckResult struct {
	Allowed   bool
	Remaining int
	Limit     int
	Used      int
	Plan      planpolicy.Plan
}

// ConsumeResult is the outcome of a Consume. When Success is false nothing
// was charged and Used is the counter the denial was decided against.
type ConsumeResult struct {
	Success   bool
	Remaining int
	Limit     int
	Used      int
}

// Err returns ErrInsufficientQuota for a denied consume and nil otherwise.
// It lets callers that branch on errors treat a denial like one without the
// Ledger raising it.
func (r ConsumeResult) Err() error {
	if r.Success {
		return nil
	}
	return ErrInsufficientQuota
}

// RefundResult is the outcome of a Refund. Success is always true when the
// error is nil; an over-sized refund is clamped rather than rejected.
type RefundResult struct {
	Success bool
	Used    int
	// Clamped is set when the refund exceeded today's recorded usage.
	Clamped bool
}

// EnsureWallet returns the user's wallet, creating it with Free defaults on
// first use. Concurrent creators converge on one record.
func (l *Ledger) EnsureWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	w, err := l.ensure(ctx, userID)
	return w, classify(err)
}

func (l *Ledger) ensure(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	w, err := l.store.Get(ctx, userID)
	if err == nil || !errors.Is(err, wallet.ErrNotFound) {
		return w, err
	}

	fresh, err := l.freeWallet(userID)
	if err != nil {
		return nil, err
	}
	w, err = l.store.Create(ctx, fresh)
	if err != nil {
		return nil, err
	}
	l.log.InfoContext(ctx, "wallet created", logger.UserID(userID), logger.Plan(w.Plan.String()))
	return w, nil
}

func (l *Ledger) freeWallet(userID uuid.UUID) (*wallet.Wallet, error) {
	limits, err := l.policy.LimitsFor(planpolicy.Free)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	return wallet.NewFree(userID, limits, l.today(now), now), nil
}

// Check reports whether count builds would be allowed now. It never writes:
// lifecycle transitions and the daily rollover are applied to a copy. An
// unknown user is answered from Free defaults.
func (l *Ledger) Check(ctx context.Context, userID uuid.UUID, count int) (CheckResult, error) {
	if err := validate(userID, count); err != nil {
		return CheckResult{}, err
	}

	w, today, err := l.view(ctx, userID, true)
	if err != nil {
		return CheckResult{}, err
	}

	used := w.UsedOn(today)
	return CheckResult{
		Allowed:   used+count <= w.DailyLimit,
		Remaining: w.Remaining(today),
		Limit:     w.DailyLimit,
		Used:      used,
		Plan:      w.Plan,
	}, nil
}

// Consume reserves count builds. Running out of quota yields Success=false
// and a nil error.
func (l *Ledger) Consume(ctx context.Context, userID uuid.UUID, count int) (ConsumeResult, error) {
	if err := validate(userID, count); err != nil {
		return ConsumeResult{}, err
	}

	w, err := l.reconcile(ctx, userID, "consume", true)
	if err != nil {
		return ConsumeResult{}, err
	}

	// A paid plan that lapses between reconcile and this call is charged
	// against its paid limit once; the next reconcile moves it to Free.
	res, err := l.store.Consume(ctx, userID, count, l.today(l.clock.Now()))
	if err != nil {
		l.log.ErrorContext(ctx, "consume failed", logger.UserID(userID), logger.Count(count), logger.Error(err))
		return ConsumeResult{}, classify(err)
	}

	l.observer.ConsumeDecided(w.Plan, count, res.Allowed)
	if !res.Allowed {
		l.log.DebugContext(ctx, "consume denied",
			logger.UserID(userID), logger.Count(count), logger.Plan(w.Plan.String()),
			slog.Int("used", res.Used), slog.Int("limit", res.Limit),
		)
	}

	return ConsumeResult{
		Success:   res.Allowed,
		Remaining: res.Remaining(),
		Limit:     res.Limit,
		Used:      res.Used,
	}, nil
}

// Refund gives back count builds on today's counter, saturating at zero.
// Refunding more than was recorded is clamped and logged, never rejected.
func (l *Ledger) Refund(ctx context.Context, userID uuid.UUID, count int) (RefundResult, error) {
	if err := validate(userID, count); err != nil {
		return RefundResult{}, err
	}

	w, err := l.reconcile(ctx, userID, "refund", false)
	if err != nil {
		return RefundResult{}, err
	}

	res, err := l.store.Refund(ctx, userID, count, l.today(l.clock.Now()))
	if err != nil {
		l.log.ErrorContext(ctx, "refund failed", logger.UserID(userID), logger.Count(count), logger.Error(err))
		return RefundResult{}, classify(err)
	}

	clamped := res.Clamped(count)
	if clamped {
		l.log.WarnContext(ctx, "refund exceeds recorded usage, clamped to zero",
			logger.UserID(userID), logger.Count(count), slog.Int("recorded", res.Previous),
		)
	}
	l.observer.Refunded(w.Plan, count, clamped)

	return RefundResult{Success: true, Used: res.Used, Clamped: clamped}, nil
}

// reconcile persists pending lifecycle transitions and returns the current
// wallet. With create set a missing wallet is created first.
func (l *Ledger) reconcile(ctx context.Context, userID uuid.UUID, op string, create bool) (*wallet.Wallet, error) {
	var transition lifecycle.Transition

	w, err := retry.Update(ctx, l.retryPolicy(ctx, userID, op),
		func(ctx context.Context) (*wallet.Wallet, error) {
			if create {
				return l.ensure(ctx, userID)
			}
			return l.store.Get(ctx, userID)
		},
		func(current *wallet.Wallet) (*wallet.Wallet, bool, error) {
			next := current.Clone()
			now := l.clock.Now()
			t, err := l.lifecycle.Advance(next, now)
			if err != nil {
				return nil, false, err
			}
			transition = t
			if !t.Changed() {
				return current, false, nil
			}
			next.UpdatedAt = now
			return next, true, nil
		},
		l.store.Replace,
	)
	if err != nil {
		return nil, classify(err)
	}

	if transition.Changed() {
		l.logTransition(ctx, userID, transition)
	}
	return w, nil
}

// view loads the wallet and advances a copy without writing.
func (l *Ledger) view(ctx context.Context, userID uuid.UUID, defaultFree bool) (*wallet.Wallet, billingclock.Date, error) {
	now := l.clock.Now()
	today := l.today(now)

	w, err := l.store.Get(ctx, userID)
	switch {
	case errors.Is(err, wallet.ErrNotFound) && defaultFree:
		if w, err = l.freeWallet(userID); err != nil {
			return nil, today, classify(err)
		}
		return w, today, nil
	case err != nil:
		return nil, today, classify(err)
	}

	if _, err := l.lifecycle.Advance(w, now); err != nil {
		return nil, today, classify(err)
	}
	return w, today, nil
}

func (l *Ledger) retryPolicy(ctx context.Context, userID uuid.UUID, op string) retry.Policy {
	p := l.retry
	p.OnConflict = func(attempt int) {
		l.observer.Conflict(op, attempt)
		l.log.DebugContext(ctx, "wallet write lost a race, retrying",
			logger.UserID(userID), logger.Operation(op), logger.RetryCount(attempt),
		)
	}
	return p
}

func (l *Ledger) logTransition(ctx context.Context, userID uuid.UUID, t lifecycle.Transition) {
	l.observer.Transitioned(t)
	if !t.PlanChanged() && t.Downgrades == 0 && !t.Expired {
		l.log.DebugContext(ctx, "wallet limits synced with policy", logger.UserID(userID), logger.Plan(t.ToPlan.String()))
		return
	}
	l.log.InfoContext(ctx, "plan lifecycle applied",
		logger.UserID(userID),
		logger.FromPlan(t.FromPlan.String()),
		logger.ToPlan(t.ToPlan.String()),
		slog.Int("downgrades", t.Downgrades),
		slog.Bool("expired", t.Expired),
	)
}

// Today returns the current date in the reference timezone.
func (l *Ledger) Today() billingclock.Date {
	return l.today(l.clock.Now())
}

func (l *Ledger) today(now time.Time) billingclock.Date {
	return billingclock.DateOf(now, l.clock.Location())
}

func validate(userID uuid.UUID, count int) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if count < MinCount || count > MaxCount {
		return invalid("count must be between 1 and 1000")
	}
	return nil
}

func validateUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return invalid("user id is required")
	}
	return nil
}
