package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
)

// Wallet is the per-user quota and billing state.
type Wallet struct {
	UserID        uuid.UUID
	Plan          planpolicy.Plan
	PlanExpiresAt *time.Time // nil means the plan never expires (Free)

	DailyLimit     int
	DailyUsed      int
	DailyResetDate billingclock.Date // reference-timezone date DailyUsed belongs to

	// BillingAnchorDay is the day of month (1..31) a paid cycle renews on;
	// 0 means unset.
	BillingAnchorDay int

	FileRetentionDays int
	BatchBuildEnabled bool
	ShareEnabled      bool
	ShareDurationDays int

	PendingDowngrades DowngradeQueue

	Version   int64 // bumped by every write
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFree returns a Free wallet for userID with usage valid for today.
func NewFree(userID uuid.UUID, limits planpolicy.Limits, today billingclock.Date, now time.Time) *Wallet {
	w := &Wallet{
		UserID:         userID,
		Plan:           planpolicy.Free,
		DailyResetDate: today,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	w.ApplyLimits(limits)
	return w
}

// Clone returns a deep copy of w.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	if w.PlanExpiresAt != nil {
		exp := *w.PlanExpiresAt
		c.PlanExpiresAt = &exp
	}
	c.PendingDowngrades = w.PendingDowngrades.Clone()
	return &c
}

// ApplyLimits copies plan limits into the cached fields and reports whether
// anything changed.
func (w *Wallet) ApplyLimits(l planpolicy.Limits) bool {
	changed := w.DailyLimit != l.DailyLimit ||
		w.FileRetentionDays != l.RetentionDays ||
		w.BatchBuildEnabled != l.BatchBuildEnabled ||
		w.ShareEnabled != l.ShareEnabled() ||
		w.ShareDurationDays != l.ShareDurationDays

	w.DailyLimit = l.DailyLimit
	w.FileRetentionDays = l.RetentionDays
	w.BatchBuildEnabled = l.BatchBuildEnabled
	w.ShareEnabled = l.ShareEnabled()
	w.ShareDurationDays = l.ShareDurationDays

	return changed
}

// UsedOn returns the counter value as seen on today: a counter recorded for
// another date has logically rolled over to zero.
func (w *Wallet) UsedOn(today billingclock.Date) int {
	if !w.DailyResetDate.Equal(today) {
		return 0
	}
	return w.DailyUsed
}

// Remaining returns the builds left on today, never negative.
func (w *Wallet) Remaining(today billingclock.Date) int {
	return max(w.DailyLimit-w.UsedOn(today), 0)
}

// IsExpired reports whether a paid plan's expiry has passed at now.
func (w *Wallet) IsExpired(now time.Time) bool {
	return w.Plan != planpolicy.Free && w.PlanExpiresAt != nil && !w.PlanExpiresAt.After(now)
}

// ResetUsage zeroes the counter for today.
func (w *Wallet) ResetUsage(today billingclock.Date) {
	w.DailyUsed = 0
	w.DailyResetDate = today
}
