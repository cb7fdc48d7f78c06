package planpolicy

import "strings"

// Plan identifies a subscription tier.
type Plan string

const (
	Free Plan = "free"
	Pro  Plan = "pro"
	Team Plan = "team"
)

// ParsePlan accepts plan names case-insensitively.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case Free, Pro, Team:
		return p, nil
	}
	return "", ErrUnknownPlan
}

// Rank orders plans from cheapest to most expensive. Unknown plans rank
// below Free.
func (p Plan) Rank() int {
	switch p {
	case Free:
		return 0
	case Pro:
		return 1
	case Team:
		return 2
	default:
		return -1
	}
}

// IsPaid reports whether the plan is billed and therefore expires.
func (p Plan) IsPaid() bool {
	return p.Rank() > 0
}

// String returns the plan name as stored and sent over the wire.
func (p Plan) String() string {
	return string(p)
}

// Limits is the entitlement set a plan grants.
type Limits struct {
	DailyLimit        int  `yaml:"daily_limit" json:"daily_limit"`
	RetentionDays     int  `yaml:"retention_days" json:"retention_days"`
	BatchBuildEnabled bool `yaml:"batch_build" json:"batch_build"`
	ShareDurationDays int  `yaml:"share_days" json:"share_days"`
}

// ShareEnabled is derived: a plan can share builds when links live at least
// one day.
func (l Limits) ShareEnabled() bool {
	return l.ShareDurationDays > 0
}
