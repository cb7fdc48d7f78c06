package quota

import (
	"github.com/dmitrymomot/quotakit/pkg/lifecycle"
	"github.com/dmitrymomot/quotakit/pkg/planpolicy"
)

// Observer receives ledger outcomes, typically to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ConsumeDecided(plan planpolicy.Plan, count int, allowed bool)
	Refunded(plan planpolicy.Plan, count int, clamped bool)
	Conflict(op string, attempt int)
	Transitioned(t lifecycle.Transition)
}

type noopObserver struct{}

func (noopObserver) ConsumeDecided(planpolicy.Plan, int, bool) {}
func (noopObserver) Refunded(planpolicy.Plan, int, bool)       {}
func (noopObserver) Conflict(string, int)                      {}
func (noopObserver) Transitioned(lifecycle.Transition)         {}
