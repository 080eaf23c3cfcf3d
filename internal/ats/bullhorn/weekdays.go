package bullhorn

import (
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
)

// Clamp intersects a placement's active interval with [weekStart, weekEnd].
// A nil end means the placement is open-ended. ok is false when the
// intersection is empty.
func Clamp(begin time.Time, end *time.Time, weekStart, weekEnd time.Time) (from, to time.Time, ok bool) {
	from = calendar.Date(begin)
	if from.Before(calendar.Date(weekStart)) {
		from = calendar.Date(weekStart)
	}
	to = calendar.Date(weekEnd)
	if end != nil && calendar.Date(*end).Before(to) {
		to = calendar.Date(*end)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// Weekdays counts Monday through Friday dates in the inclusive interval
// without iterating: total days, minus two for every Saturday/Sunday week
// boundary crossed, minus one when the interval opens on a Sunday and one
// when it closes on a Saturday.
func Weekdays(from, to time.Time) int {
	from, to = calendar.Date(from), calendar.Date(to)
	if to.Before(from) {
		return 0
	}

	days := calendar.DaysBetween(from, to) + 1
	boundaries := calendar.DaysBetween(calendar.WeekStart(from), calendar.WeekStart(to)) / 7

	n := days - 2*boundaries
	if from.Weekday() == time.Sunday {
		n--
	}
	if to.Weekday() == time.Saturday {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}
