package billingclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/quotakit/pkg/billingclock"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddCalendarMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   time.Time
		months int
		anchor int
		want   time.Time
	}{
		{"jan 31 to leap feb without anchor", date(2024, time.January, 31), 1, 0, date(2024, time.February, 29)},
		{"jan 31 to leap feb with anchor 31", date(2024, time.January, 31), 1, 31, date(2024, time.February, 29)},
		{"jan 31 to non-leap feb", date(2023, time.January, 31), 1, 0, date(2023, time.February, 28)},
		{"anchor restores month end after short month", date(2024, time.February, 29), 1, 31, date(2024, time.March, 31)},
		{"base day used after short month without anchor", date(2024, time.February, 29), 1, 0, date(2024, time.March, 29)},
		{"anchor 31 clamps in 30 day month", date(2024, time.March, 31), 1, 31, date(2024, time.April, 30)},
		{"mid month stays", date(2024, time.May, 15), 1, 0, date(2024, time.June, 15)},
		{"crosses year boundary", date(2024, time.December, 31), 1, 0, date(2025, time.January, 31)},
		{"quarter from nov 30", date(2024, time.November, 30), 3, 30, date(2025, time.February, 28)},
		{"yearly from leap day", date(2024, time.February, 29), 12, 29, date(2025, time.February, 28)},
		{"anchor outside range falls back to base day", date(2024, time.January, 10), 1, 42, date(2024, time.February, 10)},
		{"zero months keeps date", date(2024, time.January, 31), 0, 0, date(2024, time.January, 31)},
		{"negative months", date(2024, time.March, 31), -1, 0, date(2024, time.February, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, billingclock.AddCalendarMonths(tt.base, tt.months, tt.anchor))
		})
	}
}

func TestAddCalendarMonths_PreservesClockTimeAndLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+8", 8*3600)
	base := time.Date(2024, time.January, 31, 13, 45, 10, 500, loc)

	got := billingclock.AddCalendarMonths(base, 1, 0)

	assert.Equal(t, time.Date(2024, time.February, 29, 13, 45, 10, 500, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestAddCalendarMonthsDate(t *testing.T) {
	t.Parallel()

	got := billingclock.AddCalendarMonthsDate(billingclock.MustParseDate("2024-01-31"), 1, 0)
	assert.Equal(t, "2024-02-29", got.String())
}

func TestDaysIn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 29, billingclock.DaysIn(2024, time.February))
	assert.Equal(t, 28, billingclock.DaysIn(2100, time.February))
	assert.Equal(t, 29, billingclock.DaysIn(2000, time.February))
	assert.Equal(t, 30, billingclock.DaysIn(2024, time.April))
	assert.Equal(t, 31, billingclock.DaysIn(2024, time.December))
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, billingclock.Monthly.Months())
	assert.Equal(t, 3, billingclock.Quarterly.Months())
	assert.Equal(t, 12, billingclock.Yearly.Months())
	assert.Equal(t, 0, billingclock.Period("weekly").Months())
	assert.False(t, billingclock.Period("").Valid())

	p, err := billingclock.ParsePeriod(" Annual ")
	assert.NoError(t, err)
	assert.Equal(t, billingclock.Yearly, p)

	_, err = billingclock.ParsePeriod("fortnight")
	assert.ErrorIs(t, err, billingclock.ErrInvalidPeriod)
}
