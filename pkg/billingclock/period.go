package billingclock

import "strings"

// Period is the length of one paid billing cycle.
type Period string

const (
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

// Months returns the number of calendar months in the period, or 0 for an
// unknown period.
func (p Period) Months() int {
	switch p {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Yearly:
		return 12
	default:
		return 0
	}
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p.Months() > 0
}

// ParsePeriod accepts the canonical names plus the short aliases used by
// payment providers ("month", "year", ...).
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "1m":
		return Monthly, nil
	case "quarterly", "quarter", "3m":
		return Quarterly, nil
	case "yearly", "annual", "annually", "year", "12m":
		return Yearly, nil
	}
	return "", ErrInvalidPeriod
}
