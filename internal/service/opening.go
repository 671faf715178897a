package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/cache"
	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/domain"
)

const (
	// A forward adjustment longer than this means a long closure.
	dueDateMaxJump = 30
	// Upper bound on weekly steps, a year of closures is a misconfiguration.
	maxClosedWeeks = 53
)

type ClosureCalendar interface {
	IsPublicHoliday(day time.Time) bool
	IsSchoolHoliday(day time.Time) bool
}

type OpeningService struct {
	cal       ClosureCalendar
	cache     cache.Store
	ttl       time.Duration
	weekday   time.Weekday
	cutoff    int
	loanWeeks int
	loc       *time.Location
}

func NewOpeningService(cal ClosureCalendar, store cache.Store, conf *config.LibraryConfig) *OpeningService {
	return &OpeningService{
		cal:       cal,
		cache:     store,
		ttl:       conf.OpeningCacheTTL,
		weekday:   conf.OpeningWeekday,
		cutoff:    conf.CutoffHour,
		loanWeeks: conf.LoanWeeks,
		loc:       conf.Location(),
	}
}

func (s *OpeningService) Location() *time.Location {
	return s.loc
}

// IsClosed reports a public holiday, or a date that sits in school holidays
// together with the Friday before and the Monday after it.
func (s *OpeningService) IsClosed(day time.Time) bool {
	day = domain.Day(day)
	if s.cal.IsPublicHoliday(day) {
		return true
	}

	friday := domain.LastWeekday(domain.AddDays(day, -1), time.Friday)
	monday := domain.AddDays(day, daysUntil(day.Weekday(), time.Monday, false))

	return s.cal.IsSchoolHoliday(day) &&
		s.cal.IsSchoolHoliday(friday) &&
		s.cal.IsSchoolHoliday(monday)
}

// daysUntil counts the days from one weekday to the next occurrence of
// another. With sameDay, a matching weekday counts as zero.
func daysUntil(from, to time.Weekday, sameDay bool) int {
	n := (int(to) - int(from) + 7) % 7
	if n == 0 && !sameDay {
		n = 7
	}

	return n
}

func (s *OpeningService) skipClosed(candidate time.Time) time.Time {
	for i := 0; i < maxClosedWeeks && s.IsClosed(candidate); i++ {
		candidate = domain.AddDays(candidate, 7)
	}

	return candidate
}

// NextOpeningOnOrAfter returns the first open opening weekday not before day.
func (s *OpeningService) NextOpeningOnOrAfter(day time.Time) time.Time {
	day = domain.Day(day)

	return s.skipClosed(domain.AddDays(day, daysUntil(day.Weekday(), s.weekday, true)))
}

// NextOpening returns the next opening day as seen at now. An opening day
// counts until its cutoff hour.
func (s *OpeningService) NextOpening(ctx context.Context, now time.Time) time.Time {
	local := now.In(s.loc)
	today := domain.Day(local)
	beforeCutoff := local.Weekday() == s.weekday && local.Hour() < s.cutoff

	key := fmt.Sprintf("opening:%s:%t", today.Format(domain.DateLayout), beforeCutoff)

	var cached time.Time
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		zap.L().Warn("opening cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached
	}

	candidate := today
	if !beforeCutoff {
		candidate = domain.AddDays(today, daysUntil(today.Weekday(), s.weekday, false))
	}
	next := s.skipClosed(candidate)

	if err := s.cache.Set(ctx, key, next, s.ttl); err != nil {
		zap.L().Warn("opening cache write failed", zap.String("key", key), zap.Error(err))
	}

	return next
}

// DueDate is the return date of a loan started today: the first opening day
// at least the loan period away. When closures push it more than a month
// past the theoretical date, the latest open date before that theoretical
// date is used instead, provided it is still in the future.
func (s *OpeningService) DueDate(today time.Time) time.Time {
	today = domain.Day(today)
	naive := domain.AddDays(today, s.loanWeeks*7)
	due := s.NextOpeningOnOrAfter(naive)

	if domain.DaysBetween(naive, due) <= dueDateMaxJump {
		return due
	}

	for c := naive; c.After(today); c = domain.AddDays(c, -7) {
		if !s.IsClosed(c) {
			return c
		}
	}

	return due
}
