// Package scheduler runs the periodic maintenance jobs of the library.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/notify"
)

const jobTimeout = 5 * time.Minute

type StatsSnapshotter interface {
	Snapshot(ctx context.Context, day time.Time) (domain.DayStats, error)
}

type UserMaintainer interface {
	ResetExpiredRoles(ctx context.Context) ([]uint, error)
	PruneLogs(ctx context.Context, retention time.Duration) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	stats     StatsSnapshotter
	users     UserMaintainer
	pub       notify.Publisher
	retention time.Duration
	loc       *time.Location
	now       func() time.Time
}

func New(stats StatsSnapshotter, users UserMaintainer, pub notify.Publisher, retentionDays int, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		stats:     stats,
		users:     users,
		pub:       pub,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		loc:       loc,
		now:       time.Now,
	}
}

// Register adds the three jobs with the schedules of conf.
func (s *Scheduler) Register(conf *config.SchedulerConfig) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"report", conf.ReportSpec, s.Report},
		{"role-reset", conf.RoleResetSpec, s.ResetRoles},
		{"prune-logs", conf.PruneLogsSpec, s.PruneLogs},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.run) }); err != nil {
			return fmt.Errorf("s.cron.AddFunc(%s) -> %w", job.name, err)
		}
	}

	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		zap.L().Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	zap.L().Info("scheduled job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Report publishes the statistics of yesterday.
func (s *Scheduler) Report(ctx context.Context) error {
	yesterday := domain.AddDays(domain.Today(s.now(), s.loc), -1)

	stats, err := s.stats.Snapshot(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("s.stats.Snapshot -> %w", err)
	}

	if err = s.pub.Publish(ctx, notify.NewEvent(notify.EventDailyReport, stats)); err != nil {
		return fmt.Errorf("s.pub.Publish -> %w", err)
	}

	return nil
}

func (s *Scheduler) ResetRoles(ctx context.Context) error {
	ids, err := s.users.ResetExpiredRoles(ctx)
	if err != nil {
		return fmt.Errorf("s.users.ResetExpiredRoles -> %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	zap.L().Info("expired benevoles reset", zap.Uints("users", ids))
	if err = s.pub.Publish(ctx, notify.NewEvent(notify.EventRoleReset, ids)); err != nil {
		return fmt.Errorf("s.pub.Publish -> %w", err)
	}

	return nil
}

func (s *Scheduler) PruneLogs(ctx context.Context) error {
	n, err := s.users.PruneLogs(ctx, s.retention)
	if err != nil {
		return fmt.Errorf("s.users.PruneLogs -> %w", err)
	}
	zap.L().Info("event logs pruned", zap.Int64("deleted", n))

	return nil
}
