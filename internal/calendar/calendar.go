// Package calendar answers the two closure questions the library schedule
// depends on: is a date a public holiday, and is it inside school holidays.
package calendar

import (
	"fmt"
	"time"

	"github.com/ludotheque/ludo-api/internal/config"
)

const dateLayout = "2006-01-02"

type Provider interface {
	IsPublicHoliday(day time.Time) bool
	IsSchoolHoliday(day time.Time) bool
}

// Range is a closed interval of dates.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(day time.Time) bool {
	k := key(day)
	return k >= key(r.Start) && k <= key(r.End)
}

func key(day time.Time) string {
	return day.Format(dateLayout)
}

// Static serves dates listed in the configuration. Dates are compared by
// their calendar day, regardless of location.
type Static struct {
	holidays map[string]struct{}
	school   []Range
}

func NewStatic(holidays []time.Time, school []Range) *Static {
	s := &Static{
		holidays: make(map[string]struct{}, len(holidays)),
		school:   school,
	}
	for _, h := range holidays {
		s.holidays[key(h)] = struct{}{}
	}

	return s
}

// FromConfig parses the calendar section. Closures are served as public
// holidays.
func FromConfig(conf *config.CalendarConfig) (*Static, error) {
	var holidays []time.Time
	for _, list := range [][]string{conf.PublicHolidays, conf.Closures} {
		for _, s := range list {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("invalid holiday %q -> %w", s, err)
			}
			holidays = append(holidays, d)
		}
	}

	school := make([]Range, 0, len(conf.SchoolHolidays))
	for _, sh := range conf.SchoolHolidays {
		start, err := time.Parse(dateLayout, sh.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid school holiday start %q -> %w", sh.Start, err)
		}
		end, err := time.Parse(dateLayout, sh.End)
		if err != nil {
			return nil, fmt.Errorf("invalid school holiday end %q -> %w", sh.End, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("school holiday ends before it starts: %s > %s", sh.Start, sh.End)
		}
		school = append(school, Range{Start: start, End: end})
	}

	return NewStatic(holidays, school), nil
}

func (s *Static) IsPublicHoliday(day time.Time) bool {
	_, ok := s.holidays[key(day)]
	return ok
}

func (s *Static) IsSchoolHoliday(day time.Time) bool {
	for _, r := range s.school {
		if r.Contains(day) {
			return true
		}
	}

	return false
}
