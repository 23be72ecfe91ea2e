package reminder

import "time"

// Next computes the first occurrence of the given recurrence kind strictly
// after now. anchor must be the reminder's original trigger time, never the
// previously fired one: re-deriving every occurrence from the same fixed
// anchor keeps the calendar phase stable and prevents cumulative drift.
//
// Callers guarantee now >= anchor. The result is always after now, never
// equal, so a freshly re-armed reminder cannot fire again in the same poll.
func Next(kind Recurrence, anchor, now time.Time) time.Time {
	anchor, now = anchor.UTC(), now.UTC()

	switch kind {
	case Daily:
		return nextInterval(anchor, now, 24*time.Hour)
	case BiDaily:
		return nextInterval(anchor, now, 48*time.Hour)
	case Weekly:
		return nextInterval(anchor, now, 7*24*time.Hour)
	case Fortnightly:
		return nextInterval(anchor, now, 14*24*time.Hour)
	case Monthly:
		return nextMonthly(anchor, now)
	case MonthEnd:
		return nextMonthEnd(anchor, now)
	case Yearly:
		return nextYearly(anchor, now)
	case YearEnd:
		return nextYearEnd(anchor, now)
	}
	return time.Time{}
}

func nextInterval(anchor, now time.Time, interval time.Duration) time.Time {
	passed := now.Sub(anchor) / interval // integer division floors
	return anchor.Add(interval * (passed + 1))
}

// nextMonthly walks month by month from the anchor. A day-of-month that does
// not exist in the target month clamps to that month's last day, so a Jan-31
// anchor lands on Feb 28 (29 in leap years) and returns to the 31st in months
// that have one.
func nextMonthly(anchor, now time.Time) time.Time {
	for n := 1; ; n++ {
		candidate := addMonthsClamped(anchor, n)
		if candidate.After(now) {
			return candidate
		}
	}
}

// nextMonthEnd lands on the last calendar day of each successive month,
// regardless of the anchor's own day-of-month.
func nextMonthEnd(anchor, now time.Time) time.Time {
	for n := 0; ; n++ {
		y, m := spreadMonths(anchor.Year(), int(anchor.Month())+n)
		candidate := time.Date(y, time.Month(m), daysInMonth(y, time.Month(m)),
			anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), time.UTC)
		if candidate.After(now) {
			return candidate
		}
	}
}

// nextYearly keeps the anchor's month and day, advancing the year by the
// minimum amount. A Feb-29 anchor clamps to Feb 28 in non-leap years.
func nextYearly(anchor, now time.Time) time.Time {
	candidate := yearlyOn(anchor, now.Year())
	if !candidate.After(now) {
		candidate = yearlyOn(anchor, now.Year()+1)
	}
	return candidate
}

// nextYearEnd returns the soonest Dec 31 (at the anchor's time of day)
// strictly after now. When now's calendar date is already Dec 31, the result
// is Dec 31 of the following year.
func nextYearEnd(anchor, now time.Time) time.Time {
	year := now.Year()
	if now.Month() == time.December && now.Day() == 31 {
		year++
	}
	return time.Date(year, time.December, 31,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), time.UTC)
}

func yearlyOn(anchor time.Time, year int) time.Time {
	day := anchor.Day()
	if max := daysInMonth(year, anchor.Month()); day > max {
		day = max
	}
	return time.Date(year, anchor.Month(), day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), time.UTC)
}

// addMonthsClamped adds n months to t, clamping the day-of-month instead of
// letting the overflow spill into the next month (time.AddDate would turn
// Jan 31 + 1 month into Mar 2/3).
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m := spreadMonths(t.Year(), int(t.Month())+n)
	day := t.Day()
	if max := daysInMonth(y, time.Month(m)); day > max {
		day = max
	}
	return time.Date(y, time.Month(m), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// spreadMonths normalizes a (year, 1-based month) pair where month may
// exceed 12.
func spreadMonths(year, month int) (int, int) {
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	return year, month
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
