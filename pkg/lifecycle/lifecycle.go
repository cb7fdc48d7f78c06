package lifecycle

import (
	"time"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
)

// Lifecycle evaluates transitions in the reference timezone of its clock.
type Lifecycle struct {
	loc    *time.Location
	policy planpolicy.Policy
}

// New returns a Lifecycle that reads dates in the clock location and limits
// from policy. It panics when either is nil.
func New(clock billingclock.Clock, policy planpolicy.Policy) *Lifecycle {
	if clock == nil || policy == nil {
		panic("lifecycle: clock and policy are required")
	}
	return &Lifecycle{loc: clock.Location(), policy: policy}
}

// Transition summarises what Advance changed.
type Transition struct {
	FromPlan     planpolicy.Plan
	ToPlan       planpolicy.Plan
	Downgrades   int
	Expired      bool
	PolicySynced bool
}

// Changed reports whether the wallet needs to be written back.
func (t Transition) Changed() bool {
	return t.Downgrades > 0 || t.Expired || t.PolicySynced
}

// PlanChanged reports whether the effective plan moved.
func (t Transition) PlanChanged() bool {
	return t.FromPlan != t.ToPlan
}

// ApplyPendingDowngradeIfDue applies the queue head when it is due at now.
// It applies at most one entry; Advance loops.
func (l *Lifecycle) ApplyPendingDowngradeIfDue(w *wallet.Wallet, now time.Time) bool {
	head, ok := w.PendingDowngrades.Peek()
	if !ok || !head.IsDue(now) {
		return false
	}
	w.PendingDowngrades.Pop()

	w.Plan = head.TargetPlan
	switch {
	case !head.TargetPlan.IsPaid():
		w.PlanExpiresAt = nil
	case head.Period.Valid():
		exp := billingclock.AddCalendarMonths(head.EffectiveAt.In(l.loc), head.Period.Months(), w.BillingAnchorDay)
		w.PlanExpiresAt = &exp
	case head.ExpiresAt != nil:
		exp := *head.ExpiresAt
		w.PlanExpiresAt = &exp
	default:
		// A paid entry with no period and no expiry has nothing to bill
		// against. It lapses at its effective time so ExpireIfNeeded drops it.
		exp := head.EffectiveAt
		w.PlanExpiresAt = &exp
	}

	w.ResetUsage(billingclock.DateOf(now, l.loc))
	w.UpdatedAt = now
	return true
}

// ExpireIfNeeded moves an overdue paid plan to Free and drops its queue.
// A Free wallet is left alone.
func (l *Lifecycle) ExpireIfNeeded(w *wallet.Wallet, now time.Time) bool {
	if !w.IsExpired(now) {
		return false
	}

	w.Plan = planpolicy.Free
	w.PlanExpiresAt = nil
	w.PendingDowngrades = nil
	w.ResetUsage(billingclock.DateOf(now, l.loc))
	w.UpdatedAt = now
	return true
}

// SyncPolicy copies the current plan's limits into the wallet.
func (l *Lifecycle) SyncPolicy(w *wallet.Wallet) (bool, error) {
	limits, err := l.policy.LimitsFor(w.Plan)
	if err != nil {
		return false, err
	}
	return w.ApplyLimits(limits), nil
}

// Advance brings w up to date at now.
func (l *Lifecycle) Advance(w *wallet.Wallet, now time.Time) (Transition, error) {
	t := Transition{FromPlan: w.Plan}

	for l.ApplyPendingDowngradeIfDue(w, now) {
		t.Downgrades++
	}
	t.Expired = l.ExpireIfNeeded(w, now)

	synced, err := l.SyncPolicy(w)
	if err != nil {
		return t, err
	}
	t.PolicySynced = synced
	t.ToPlan = w.Plan
	return t, nil
}
