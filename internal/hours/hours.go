// Package hours computes worked hours per recruiter over a rolling three
// week window and serves the weekly hours report.
package hours

import (
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/money"
)

const (
	LabelLast = "last"
	LabelThis = "this"
	LabelNext = "next"
)

var Labels = []string{LabelLast, LabelThis, LabelNext}

// Buckets is the number of day buckets per week: Sunday and Monday share
// bucket 0, Tuesday through Saturday take 1 to 5.
const Buckets = 6

type Week struct {
	Label string
	Start time.Time
}

// RollingWindow is last week, this week and next week relative to a day.
type RollingWindow struct {
	Weeks [3]Week
}

// Window returns the window around now: last week's Sunday through next
// week's Saturday.
func Window(now time.Time) RollingWindow {
	this := calendar.WeekStart(now)
	return RollingWindow{Weeks: [3]Week{
		{Label: LabelLast, Start: calendar.AddDays(this, -7)},
		{Label: LabelThis, Start: this},
		{Label: LabelNext, Start: calendar.AddDays(this, 7)},
	}}
}

func (w RollingWindow) Start() time.Time {
	return w.Weeks[0].Start
}

func (w RollingWindow) End() time.Time {
	return calendar.WeekEnd(w.Weeks[2].Start)
}

// Dates lists every calendar day of the window in order.
func (w RollingWindow) Dates() []time.Time {
	n := calendar.DaysBetween(w.Start(), w.End()) + 1
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, calendar.AddDays(w.Start(), i))
	}
	return dates
}

func (w RollingWindow) Week(label string) (time.Time, bool) {
	for _, wk := range w.Weeks {
		if wk.Label == label {
			return wk.Start, true
		}
	}
	return time.Time{}, false
}

// LabelMap maps each label to its Sunday.
func (w RollingWindow) LabelMap() map[string]time.Time {
	m := make(map[string]time.Time, len(w.Weeks))
	for _, wk := range w.Weeks {
		m[wk.Label] = wk.Start
	}
	return m
}

func DayBucket(date time.Time) int {
	switch wd := date.Weekday(); wd {
	case time.Sunday, time.Monday:
		return 0
	default:
		return int(wd) - 1
	}
}

// WorkedHours is the shift length less the client's default lunch, in hours
// rounded to cents. The per-order lunch is ignored: it is only filled in
// after payroll runs. The result is negative when the shift ends before it
// starts.
func WorkedHours(shift ats.ShiftFact) float64 {
	minutes := shift.ShiftEnd.Sub(shift.ShiftStart).Minutes() - float64(shift.ClientLunchMinutes)
	return money.Round2(minutes / 60)
}
