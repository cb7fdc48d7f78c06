package billingclock

import "errors"

var (
	ErrInvalidDate     = errors.New("billingclock: invalid date")
	ErrInvalidPeriod   = errors.New("billingclock: invalid billing period")
	ErrInvalidLocation = errors.New("billingclock: invalid reference timezone")
)
