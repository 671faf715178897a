package domain

import (
	"math"
	"time"
)

const DateLayout = "2006-01-02"

// Day returns the calendar date of t, in t's own location, as midnight UTC.
// Every date handled by the library goes through Day so dates compare
// regardless of where they came from.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	return Day(now.In(loc))
}

func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

func DaysBetween(from, to time.Time) int {
	return int(math.Round(Day(to).Sub(Day(from)).Hours() / 24))
}

func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}
