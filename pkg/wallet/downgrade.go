package wallet

import (
	"slices"
	"time"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
)

// PendingDowngrade is a plan change scheduled for the end of the current
// paid period.
type PendingDowngrade struct {
	TargetPlan  planpolicy.Plan     `json:"target_plan" bson:"target_plan"`
	Period      billingclock.Period `json:"period" bson:"period"`
	EffectiveAt time.Time           `json:"effective_at" bson:"effective_at"`
	// ExpiresAt is the projected end of the downgraded plan's first cycle,
	// recorded when the downgrade was scheduled. Nil for Free.
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// IsDue reports whether the downgrade may be applied at now.
func (d PendingDowngrade) IsDue(now time.Time) bool {
	return !d.EffectiveAt.After(now)
}

// DowngradeQueue is a FIFO of pending downgrades. The zero value is an empty
// queue.
type DowngradeQueue []PendingDowngrade

// Push appends d to the tail.
func (q *DowngradeQueue) Push(d PendingDowngrade) {
	*q = append(*q, d)
}

// Peek returns the head without removing it.
func (q DowngradeQueue) Peek() (PendingDowngrade, bool) {
	if len(q) == 0 {
		return PendingDowngrade{}, false
	}
	return q[0], true
}

// Pop removes and returns the head.
func (q *DowngradeQueue) Pop() (PendingDowngrade, bool) {
	head, ok := q.Peek()
	if !ok {
		return PendingDowngrade{}, false
	}
	*q = slices.Clone((*q)[1:])
	return head, true
}

// Tail returns the most recently queued downgrade.
func (q DowngradeQueue) Tail() (PendingDowngrade, bool) {
	if len(q) == 0 {
		return PendingDowngrade{}, false
	}
	return q[len(q)-1], true
}

// Len returns the number of queued downgrades.
func (q DowngradeQueue) Len() int {
	return len(q)
}

// Clone returns a deep copy of q. A nil or empty queue clones to nil.
func (q DowngradeQueue) Clone() DowngradeQueue {
	if len(q) == 0 {
		return nil
	}
	out := make(DowngradeQueue, len(q))
	for i, d := range q {
		if d.ExpiresAt != nil {
			exp := *d.ExpiresAt
			d.ExpiresAt = &exp
		}
		out[i] = d
	}
	return out
}
