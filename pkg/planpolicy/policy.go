package planpolicy

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// Policy resolves the limits of a plan. Implementations are immutable after
// construction and safe for concurrent use.
type Policy interface {
	LimitsFor(plan Plan) (Limits, error)
}

// Source supplies the plan table a Policy is built from.
type Source interface {
	Load(ctx context.Context) (map[Plan]Limits, error)
}

type policy struct {
	// Treated as immutable after New returns.
	plans map[Plan]Limits
}

// New loads the plan table from src and validates it. Free must always be
// configured because every wallet falls back to it.
func New(ctx context.Context, src Source) (Policy, error) {
	if src == nil {
		panic("planpolicy: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPolicy, err)
	}

	if err := validate(plans); err != nil {
		return nil, err
	}

	return &policy{plans: maps.Clone(plans)}, nil
}

// LimitsFor returns the limits configured for plan.
func (p *policy) LimitsFor(plan Plan) (Limits, error) {
	l, ok := p.plans[plan]
	if !ok {
		return Limits{}, errors.Join(ErrUnknownPlan, fmt.Errorf("plan %q", plan))
	}
	return l, nil
}

func validate(plans map[Plan]Limits) error {
	if _, ok := plans[Free]; !ok {
		return errors.Join(ErrInvalidPolicy, errors.New("free plan must be configured"))
	}
	for plan, l := range plans {
		if plan.Rank() < 0 {
			return errors.Join(ErrInvalidPolicy, fmt.Errorf("plan %q is not a known tier", plan))
		}
		if l.DailyLimit < 0 || l.RetentionDays < 0 || l.ShareDurationDays < 0 {
			return errors.Join(ErrInvalidPolicy, fmt.Errorf("plan %q has negative limits", plan))
		}
	}
	return nil
}
