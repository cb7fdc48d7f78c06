package billingclock

import "time"

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddCalendarMonths moves base forward (or backward, for negative months) by
// whole calendar months.
//
// The day of month of the result is min(anchorDay, DaysIn(target month)),
// where anchorDay falls back to base.Day() when it is outside 1..31. The
// time of day and location of base are preserved.
//
//	AddCalendarMonths(2024-01-31, 1, 0)  == 2024-02-29
//	AddCalendarMonths(2024-02-29, 1, 31) == 2024-03-31
//	AddCalendarMonths(2024-03-31, 1, 0)  == 2024-04-30
func AddCalendarMonths(base time.Time, months, anchorDay int) time.Time {
	day := anchorDay
	if day < 1 || day > 31 {
		day = base.Day()
	}

	// Step through the first of the month so Go never normalizes an overflow
	// like Feb 31 into March.
	first := time.Date(base.Year(), base.Month()+time.Month(months), 1,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())

	day = min(day, DaysIn(first.Year(), first.Month()))

	return time.Date(first.Year(), first.Month(), day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

// AddCalendarMonthsDate is AddCalendarMonths for calendar dates.
func AddCalendarMonthsDate(base Date, months, anchorDay int) Date {
	return DateOf(AddCalendarMonths(base.Time(time.UTC), months, anchorDay), time.UTC)
}
