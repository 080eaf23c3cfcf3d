// Package calendar normalizes report dates. Weeks run Sunday through
// Saturday and are identified by their Sunday; every date handled by the
// reports is a UTC midnight.
package calendar

import "time"

const Layout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day in t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}

// WeekStart returns the Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	d := Date(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekEnd returns the Saturday closing the week that starts on weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return AddDays(weekStart, 6)
}

func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// DaysBetween counts calendar days from a to b; negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// Parse reads an ISO calendar date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}

func Format(t time.Time) string {
	return Date(t).Format(Layout)
}
