// Package core holds the domain model and the calendar engine.
//
// The calendar functions are pure: every produced date is built fresh from
// (year, month, clamped day) components. No function here ever sets an
// out-of-range day on an existing date, which is exactly the overflow bug
// (day 31 on a 28-day month sliding into March) they exist to rule out.
package core

import "time"

// LastDayOfMonth returns the true number of days in the month, leap-year
// aware. Day zero of the following month normalizes to the last day of this
// one.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SafeDueDate returns the due date for (year, month, dueDay) at start of day,
// with the day clamped to the month's real length.
//
//	SafeDueDate(2025, time.February, 31) -> 2025-02-28
//	SafeDueDate(2025, time.April, 31)    -> 2025-04-30
//	SafeDueDate(2025, time.January, 31)  -> 2025-01-31
func SafeDueDate(year int, month time.Month, dueDay int) time.Time {
	day := dueDay
	if last := LastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextDueDate projects the due date periodsAhead periods after base.
//
// Weekly and biweekly frequencies are plain day offsets from base. Monthly
// and yearly frequencies advance the month/year count and then re-clamp
// dueDay against the target month; the day is never taken from base, so a
// bill anchored on the 31st lands on the 28th in February and back on the
// 31st in March. An unknown frequency projects monthly.
func NextDueDate(base time.Time, frequency Frequency, dueDay, periodsAhead int) time.Time {
	base = StartOfDay(base)

	switch frequency {
	case Weekly:
		return base.AddDate(0, 0, 7*periodsAhead)

	case Biweekly:
		return base.AddDate(0, 0, 14*periodsAhead)

	case Yearly:
		return SafeDueDate(base.Year()+periodsAhead, base.Month(), dueDay)

	default: // Monthly
		months := int(base.Month()) - 1 + periodsAhead
		year := base.Year() + months/12
		month := time.Month(months%12 + 1)
		return SafeDueDate(year, month, dueDay)
	}
}

// GenerateDueDates returns count due dates starting at period zero, which is
// the clamped start-aligned date itself rather than one period after it.
// The sequence is a pure function of its inputs.
func GenerateDueDates(start time.Time, frequency Frequency, dueDay, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, NextDueDate(start, frequency, dueDay, i))
	}
	return dates
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// StartOfDay truncates t to 00:00:00 in UTC.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
