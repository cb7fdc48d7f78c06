package wallet

import "github.com/dmitrymomot/quotakit/pkg/billingclock"

// Usage is the slice of a wallet that daily accounting reads and writes.
type Usage struct {
	Used      int
	Limit     int
	ResetDate billingclock.Date
}

// UsageOf extracts the accounting fields of w.
func UsageOf(w *Wallet) Usage {
	return Usage{Used: w.DailyUsed, Limit: w.DailyLimit, ResetDate: w.DailyResetDate}
}

// ConsumeResult is the outcome of a Store.Consume call. Used is the counter
// for today after the call (after rollover, whether or not the increment
// was allowed).
type ConsumeResult struct {
	Allowed bool
	Used    int
	Limit   int
}

// Remaining returns the builds left after the call.
func (r ConsumeResult) Remaining() int {
	return max(r.Limit-r.Used, 0)
}

// RefundResult is the outcome of a Store.Refund call. Previous is today's
// counter before the refund (0 when the stored date had rolled over).
type RefundResult struct {
	Previous int
	Used     int
}

// Clamped reports whether the refund asked for more than was recorded.
func (r RefundResult) Clamped(count int) bool {
	return count > r.Previous
}

// PlanConsume computes the state after consuming count builds on today.
// It rolls a stale counter over to zero before checking the limit. When the
// increment is not allowed the returned usage is the rolled-over view and
// must not be persisted on its own.
func PlanConsume(u Usage, count int, today billingclock.Date) (next Usage, rolledOver, allowed bool) {
	used := u.Used
	rolledOver = !u.ResetDate.Equal(today)
	if rolledOver {
		used = 0
	}

	next = Usage{Used: used, Limit: u.Limit, ResetDate: today}
	if used+count > u.Limit {
		return next, rolledOver, false
	}

	next.Used = used + count
	return next, rolledOver, true
}

// PlanRefund computes the state after refunding count builds on today,
// saturating at zero. A stale counter is treated as zero for today.
func PlanRefund(u Usage, count int, today billingclock.Date) (next Usage, previous int) {
	previous = u.Used
	if !u.ResetDate.Equal(today) {
		previous = 0
	}
	return Usage{Used: max(previous-count, 0), Limit: u.Limit, ResetDate: today}, previous
}
