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

type StatsLoanRepository interface {
	ActiveAround(ctx context.Context, day, since time.Time) ([]domain.Loan, error)
}

type ClosedDays interface {
	IsClosed(day time.Time) bool
}

type StatsService struct {
	loans   StatsLoanRepository
	closed  ClosedDays
	cache   cache.Store
	ttl     time.Duration
	weekday time.Weekday
	loc     *time.Location
	now     Clock
}

func NewStatsService(loans StatsLoanRepository, closed ClosedDays, store cache.Store, conf *config.LibraryConfig) *StatsService {
	return &StatsService{
		loans:   loans,
		closed:  closed,
		cache:   store,
		ttl:     conf.StatsCacheTTL,
		weekday: conf.OpeningWeekday,
		loc:     conf.Location(),
		now:     time.Now,
	}
}

// Snapshot computes the statistics of day from storage, without the cache.
func (s *StatsService) Snapshot(ctx context.Context, day time.Time) (domain.DayStats, error) {
	day = domain.Day(day)

	loans, err := s.loans.ActiveAround(ctx, day, domain.AddDays(day, -(domain.StatsWindowDays-1)))
	if err != nil {
		return domain.DayStats{}, fmt.Errorf("s.loans.ActiveAround -> %w", err)
	}

	return domain.ComputeDayStats(day, loans), nil
}

// compute caches past days only. Today is still moving.
func (s *StatsService) compute(ctx context.Context, day, today time.Time) (domain.DayStats, error) {
	day = domain.Day(day)
	past := day.Before(today)
	key := "stats:" + day.Format(domain.DateLayout)

	if past {
		var cached domain.DayStats
		if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
			zap.L().Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	stats, err := s.Snapshot(ctx, day)
	if err != nil {
		return domain.DayStats{}, err
	}

	if past {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			zap.L().Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return stats, nil
}

func (s *StatsService) Day(ctx context.Context, operator domain.Identity, day time.Time) (domain.DayStats, error) {
	if err := operator.Require(domain.CapStatsView); err != nil {
		return domain.DayStats{}, err
	}

	return s.compute(ctx, day, domain.Today(s.now(), s.loc))
}

// lastOpening returns the latest opening weekday on or before today that was
// not closed.
func (s *StatsService) lastOpening(today time.Time) time.Time {
	anchor := domain.LastWeekday(today, s.weekday)
	for i := 0; i < maxClosedWeeks && s.closed.IsClosed(anchor); i++ {
		anchor = domain.AddDays(anchor, -7)
	}

	return anchor
}

// Series returns one point per week, oldest first, ending on the latest
// opening day.
func (s *StatsService) Series(ctx context.Context, operator domain.Identity) ([]domain.DayStats, error) {
	if err := operator.Require(domain.CapStatsView); err != nil {
		return nil, err
	}

	today := domain.Today(s.now(), s.loc)
	days := domain.SeriesDays(s.lastOpening(today), domain.StatsSeriesWeeks)

	series := make([]domain.DayStats, 0, len(days))
	for _, d := range days {
		stats, err := s.compute(ctx, d, today)
		if err != nil {
			return nil, err
		}
		series = append(series, stats)
	}

	return series, nil
}

func (s *StatsService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
