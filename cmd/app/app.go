package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ludotheque/ludo-api/internal/api"
	"github.com/ludotheque/ludo-api/internal/cache"
	"github.com/ludotheque/ludo-api/internal/calendar"
	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/db"
	"github.com/ludotheque/ludo-api/internal/idp"
	"github.com/ludotheque/ludo-api/internal/logger"
	"github.com/ludotheque/ludo-api/internal/mailer"
	"github.com/ludotheque/ludo-api/internal/notify"
	"github.com/ludotheque/ludo-api/internal/repository"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
	"github.com/ludotheque/ludo-api/internal/scheduler"
	"github.com/ludotheque/ludo-api/internal/service"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return fmt.Errorf("failed to initialize tables -> %w", err)
	}

	redisClient, err := cache.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis -> %w", err)
	}

	pub := notify.New(conf.RabbitMQ.URL, conf.RabbitMQ.Queue)
	if closer, ok := pub.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	services, err := newServices(conf, postgresDB, redisClient, pub)
	if err != nil {
		return err
	}

	config.Watch(configPath, func(next *config.AppConfig) {
		services.Loans.SetPricing(next.Pricing.Pricing())
		zap.L().Info("pricing reloaded", zap.Any("pricing", next.Pricing))
	}, func(err error) {
		zap.L().Warn("config reload rejected", zap.Error(err))
	})

	if conf.Scheduler.Enabled {
		sched := scheduler.New(services.Stats, services.Users, pub,
			conf.Scheduler.LogRetentionDays, conf.Library.Location())
		if err = sched.Register(conf.Scheduler); err != nil {
			return fmt.Errorf("failed to initialize scheduler -> %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	s := api.NewServer(conf, services)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// newStore returns a Redis store under its own prefix when Redis is
// configured, an in-process one otherwise. Stores are separate so clearing
// one leaves the others alone.
func newStore(client *redis.Client, conf *config.RedisConfig, name string) cache.Store {
	if client == nil {
		return cache.NewMemory()
	}

	return cache.NewRedis(client, conf.Prefix+":"+name)
}

func newServices(conf *config.AppConfig, postgresDB *gorm.DB, redisClient *redis.Client, pub notify.Publisher) (api.Services, error) {
	cal, err := calendar.FromConfig(conf.Calendar)
	if err != nil {
		return api.Services{}, fmt.Errorf("failed to initialize calendar -> %w", err)
	}

	validator, err := idp.NewJWT(conf.Auth)
	if err != nil {
		return api.Services{}, fmt.Errorf("failed to initialize token validator -> %w", err)
	}

	tx := dao.NewTransactor(postgresDB, conf.Postgres.TxRetries)
	users := repository.NewUserRepository(dao.NewUserDAO(postgresDB))
	items := repository.NewItemRepository(dao.NewItemDAO(postgresDB))
	loans := repository.NewLoanRepository(dao.NewLoanDAO(postgresDB))
	bookings := repository.NewBookingRepository(dao.NewBookingDAO(postgresDB))
	ledger := repository.NewLedgerRepository(dao.NewLedgerDAO(postgresDB), dao.NewEventLogDAO(postgresDB))

	loc := conf.Library.Location()

	opening := service.NewOpeningService(cal, newStore(redisClient, conf.Redis, "opening"), conf.Library)

	return api.Services{
		Identity: service.NewIdentityService(users, validator, newStore(redisClient, conf.Redis, "identity"), conf.Auth, loc),
		Opening:  opening,
		Loans: service.NewLoanService(tx, users, items, loans, ledger, opening, pub,
			conf.Pricing.Pricing(), conf.Library),
		Bookings: service.NewBookingService(tx, bookings, items, conf.Library.BookingMax),
		Users:    service.NewUserService(tx, users, loans, ledger, conf.Auth.APIKeyPrefix, loc),
		Items:    service.NewItemService(tx, items, loc),
		Stats:    service.NewStatsService(loans, opening, newStore(redisClient, conf.Redis, "stats"), conf.Library),
		Ledger:   service.NewLedgerService(ledger),
		Reminders: service.NewReminderService(users, loans, items, mailer.New(conf.Mail),
			conf.Mail.CC, conf.Mail.MinPeriodDays, loc),
	}, nil
}
