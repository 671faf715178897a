package domain

import "time"

const (
	StatsWindowDays  = 28
	StatsSeriesWeeks = 16
)

type DayStats struct {
	Day           time.Time `json:"day"`
	ActiveUsers   int       `json:"active_users"`
	ActiveUsers4W int       `json:"active_users_4w"`
	OnLoan        int       `json:"on_loan"`
	NewLoans      int       `json:"new_loans"`
	Returns       int       `json:"returns"`
}

func returnedOn(l Loan, day time.Time) bool {
	return l.Status == LoanIn && Day(l.Stop).Equal(day)
}

func activeBetween(l Loan, from, to time.Time) bool {
	start := Day(l.Start)
	if !start.Before(from) && !start.After(to) {
		return true
	}
	if l.Status == LoanIn {
		stop := Day(l.Stop)
		return !stop.Before(from) && !stop.After(to)
	}

	return false
}

// ComputeDayStats reports the activity of day over loans. loans must contain
// at least every loan started on or before day that was still out or closed
// within the trailing window.
func ComputeDayStats(day time.Time, loans []Loan) DayStats {
	day = Day(day)
	windowStart := AddDays(day, -(StatsWindowDays - 1))

	s := DayStats{Day: day}
	users := map[uint]struct{}{}
	users4w := map[uint]struct{}{}

	for _, l := range loans {
		start := Day(l.Start)
		if start.After(day) {
			continue
		}

		if start.Equal(day) {
			s.NewLoans++
		}
		if returnedOn(l, day) {
			s.Returns++
		}
		if l.Status == LoanOut || Day(l.Stop).After(day) {
			s.OnLoan++
		}

		if l.UserID == nil {
			continue
		}
		if start.Equal(day) || returnedOn(l, day) {
			users[*l.UserID] = struct{}{}
		}
		if activeBetween(l, windowStart, day) {
			users4w[*l.UserID] = struct{}{}
		}
	}

	s.ActiveUsers = len(users)
	s.ActiveUsers4W = len(users4w)

	return s
}

// SeriesDays returns the weekly anchors ending at anchor, oldest first.
func SeriesDays(anchor time.Time, weeks int) []time.Time {
	anchor = Day(anchor)
	days := make([]time.Time, weeks)
	for i := 0; i < weeks; i++ {
		days[weeks-1-i] = AddDays(anchor, -7*i)
	}

	return days
}

// LastWeekday returns the latest date on or before t falling on wd.
func LastWeekday(t time.Time, wd time.Weekday) time.Time {
	t = Day(t)
	back := (int(t.Weekday()) - int(wd) + 7) % 7

	return AddDays(t, -back)
}
