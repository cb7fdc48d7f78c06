// Package billingclock provides the calendar arithmetic used by quota
// accounting and subscription billing.
//
// Two concerns live here:
//
//   - A Clock that reports "now" and "today" in one fixed reference
//     timezone. Daily quota counters are keyed by the reference-timezone
//     calendar date, so every server instance must agree on where a day
//     begins regardless of its own local timezone.
//
//   - Month arithmetic with month-end stickiness. AddCalendarMonths keeps a
//     billing anchor day across months of different lengths: a subscription
//     anchored on the 31st renews on Feb 28 (or 29), then Mar 31, Apr 30 and
//     so on, instead of drifting the way time.AddDate normalizes overflow.
//
// # Usage
//
//	clock := billingclock.New(time.UTC)
//	today := clock.Today() // billingclock.Date{2024, time.March, 5}
//
//	next := billingclock.AddCalendarMonths(
//	    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), 1, 0,
//	) // 2024-02-29
//
// Tests use NewManual to pin and advance time deterministically.
//
// All functions are pure except Clock implementations, which read the wall
// clock. Nothing in this package performs I/O.
package billingclock
