package quota

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/lifecycle"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/retry"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// SubscriptionUpdate is the state reported by the payment provider after a
// checkout or subscription change.
type SubscriptionUpdate struct {
	Plan planpolicy.Plan
	// ExpiresAt is required for paid plans and ignored for Free.
	ExpiresAt         *time.Time
	PendingDowngrades []wallet.PendingDowngrade
	// ResetAnchor re-derives the billing anchor from ExpiresAt. An unset
	// anchor is always derived.
	ResetAnchor bool
}

// Snapshot is a read-only view of a wallet as of Today.
type Snapshot struct {
	Wallet    *wallet.Wallet
	Today     billingclock.Date
	Used      int
	Remaining int
}

// UpdateSubscription replaces the plan, expiry and pending downgrade queue.
// Usage is reset when the plan changes.
func (l *Ledger) UpdateSubscription(ctx context.Context, userID uuid.UUID, upd SubscriptionUpdate) (*wallet.Wallet, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	return l.mutate(ctx, userID, "update_subscription", func(w *wallet.Wallet, now time.Time) error {
		planChanged := w.Plan != upd.Plan
		w.Plan = upd.Plan

		if upd.Plan.IsPaid() {
			exp := *upd.ExpiresAt
			w.PlanExpiresAt = &exp
			if upd.ResetAnchor || w.BillingAnchorDay == 0 {
				w.BillingAnchorDay = exp.In(l.clock.Location()).Day()
			}
		} else {
			w.PlanExpiresAt = nil
		}

		w.PendingDowngrades = wallet.DowngradeQueue(upd.PendingDowngrades).Clone()
		if planChanged {
			w.ResetUsage(l.today(now))
		}
		return nil
	})
}

// UpgradeQuota moves the wallet to a plan of equal or higher rank starting
// now. The anchor moves to today, the pending queue is dropped and usage is
// reset.
func (l *Ledger) UpgradeQuota(ctx context.Context, userID uuid.UUID, plan planpolicy.Plan, period billingclock.Period) (*wallet.Wallet, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if !plan.IsPaid() {
		return nil, invalid("upgrade target must be a paid plan")
	}
	if !period.Valid() {
		return nil, invalid("unknown billing period")
	}

	return l.mutate(ctx, userID, "upgrade", func(w *wallet.Wallet, now time.Time) error {
		if plan.Rank() < w.Plan.Rank() {
			return invalid("upgrade target ranks below the current plan")
		}

		local := now.In(l.clock.Location())
		exp := billingclock.AddCalendarMonths(local, period.Months(), local.Day())

		w.Plan = plan
		w.BillingAnchorDay = local.Day()
		w.PlanExpiresAt = &exp
		w.PendingDowngrades = nil
		w.ResetUsage(l.today(now))
		return nil
	})
}

// RenewQuota extends the current paid plan by one period from the later of
// its expiry and now, keeping the billing anchor. Usage and the pending
// queue are left as they are.
func (l *Ledger) RenewQuota(ctx context.Context, userID uuid.UUID, period billingclock.Period) (*wallet.Wallet, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if !period.Valid() {
		return nil, invalid("unknown billing period")
	}

	return l.mutate(ctx, userID, "renew", func(w *wallet.Wallet, now time.Time) error {
		if !w.Plan.IsPaid() {
			return invalid("free wallets cannot be renewed")
		}

		base := now
		if w.PlanExpiresAt != nil && w.PlanExpiresAt.After(now) {
			base = *w.PlanExpiresAt
		}
		base = base.In(l.clock.Location())
		if w.BillingAnchorDay == 0 {
			w.BillingAnchorDay = base.Day()
		}

		exp := billingclock.AddCalendarMonths(base, period.Months(), w.BillingAnchorDay)
		w.PlanExpiresAt = &exp
		return nil
	})
}

// ScheduleDowngrade queues a move to plan at the end of the current paid
// period, or after the last queued downgrade. The target may not rank above
// the plan it follows.
func (l *Ledger) ScheduleDowngrade(ctx context.Context, userID uuid.UUID, plan planpolicy.Plan, period billingclock.Period) (*wallet.Wallet, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if plan.Rank() < 0 {
		return nil, invalid("unknown plan")
	}
	if plan.IsPaid() && !period.Valid() {
		return nil, invalid("paid downgrade target needs a billing period")
	}

	return l.mutate(ctx, userID, "schedule_downgrade", func(w *wallet.Wallet, _ time.Time) error {
		if !w.Plan.IsPaid() {
			return invalid("free wallets have nothing to downgrade")
		}

		ref := w.Plan
		effective := w.PlanExpiresAt
		if tail, ok := w.PendingDowngrades.Tail(); ok {
			ref = tail.TargetPlan
			effective = tail.ExpiresAt
		}
		if effective == nil {
			return invalid("no paid period to downgrade after")
		}
		if plan.Rank() > ref.Rank() {
			return invalid("downgrade target ranks above the plan it follows")
		}

		entry := wallet.PendingDowngrade{
			TargetPlan:  plan,
			EffectiveAt: *effective,
		}
		if plan.IsPaid() {
			entry.Period = period
			exp := billingclock.AddCalendarMonths(effective.In(l.clock.Location()), period.Months(), w.BillingAnchorDay)
			entry.ExpiresAt = &exp
		}
		w.PendingDowngrades.Push(entry)
		return nil
	})
}

// Snapshot returns the wallet as it would look after pending lifecycle
// transitions, without writing them.
func (l *Ledger) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	if err := validateUser(userID); err != nil {
		return Snapshot{}, err
	}

	w, today, err := l.view(ctx, userID, false)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Wallet:    w,
		Today:     today,
		Used:      w.UsedOn(today),
		Remaining: w.Remaining(today),
	}, nil
}

// mutate applies fn on top of the advanced wallet and writes the result
// under the version guard, retrying lost races.
func (l *Ledger) mutate(ctx context.Context, userID uuid.UUID, op string, fn func(w *wallet.Wallet, now time.Time) error) (*wallet.Wallet, error) {
	var transition lifecycle.Transition

	w, err := retry.Update(ctx, l.retryPolicy(ctx, userID, op),
		func(ctx context.Context) (*wallet.Wallet, error) {
			return l.ensure(ctx, userID)
		},
		func(current *wallet.Wallet) (*wallet.Wallet, bool, error) {
			next := current.Clone()
			now := l.clock.Now()

			t, err := l.lifecycle.Advance(next, now)
			if err != nil {
				return nil, false, err
			}
			if err := fn(next, now); err != nil {
				return nil, false, err
			}
			if _, err := l.lifecycle.SyncPolicy(next); err != nil {
				return nil, false, err
			}
			transition = t
			next.UpdatedAt = now
			return next, true, nil
		},
		l.store.Replace,
	)
	if err != nil {
		l.log.WarnContext(ctx, "subscription change rejected",
			logger.UserID(userID), logger.Operation(op), logger.Error(err),
		)
		return nil, classify(err)
	}

	if transition.Changed() {
		l.logTransition(ctx, userID, transition)
	}
	l.log.InfoContext(ctx, "subscription changed",
		logger.UserID(userID), logger.Operation(op), logger.Plan(w.Plan.String()), logger.Version(w.Version),
	)
	return w, nil
}

func validateUpdate(upd SubscriptionUpdate) error {
	if upd.Plan.Rank() < 0 {
		return invalid("unknown plan")
	}
	if upd.Plan.IsPaid() && upd.ExpiresAt == nil {
		return invalid("paid plans need an expiry")
	}

	for i, d := range upd.PendingDowngrades {
		if d.TargetPlan.Rank() < 0 {
			return invalid("pending downgrade has an unknown plan")
		}
		if d.EffectiveAt.IsZero() {
			return invalid("pending downgrade needs an effective time")
		}
		if d.Period != "" && !d.Period.Valid() {
			return invalid("pending downgrade has an unknown billing period")
		}
		if d.TargetPlan.IsPaid() && !d.Period.Valid() && d.ExpiresAt == nil {
			return invalid("paid pending downgrade needs a period or an expiry")
		}
		if i > 0 && d.EffectiveAt.Before(upd.PendingDowngrades[i-1].EffectiveAt) {
			return invalid("pending downgrades must be ordered by effective time")
		}
	}
	return nil
}
