package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ludotheque/ludo-api/internal/domain"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	RabbitMQ  *RabbitMQConfig  `mapstructure:"rabbitmq"`
	Auth      *AuthConfig      `mapstructure:"auth"`
	Library   *LibraryConfig   `mapstructure:"library"`
	Pricing   *PricingConfig   `mapstructure:"pricing"`
	Calendar  *CalendarConfig  `mapstructure:"calendar"`
	Mail      *MailConfig      `mapstructure:"mail"`
	Scheduler *SchedulerConfig `mapstructure:"scheduler"`
}

type APIConfig struct {
	Port               string   `mapstructure:"port"`
	Environment        string   `mapstructure:"environment"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	BaseURL            string   `mapstructure:"base_url"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	DB        string `mapstructure:"db"`
	SSLMode   string `mapstructure:"sslmode"`
	TxRetries int    `mapstructure:"tx_retries"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

// RedisConfig is optional. An empty Addr keeps every cache in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type AuthConfig struct {
	// Production turns on the volunteer time window.
	Production   bool          `mapstructure:"production"`
	APIKeyPrefix string        `mapstructure:"apikey_prefix"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`

	// Token validation against the identity provider.
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	SigningKey    string `mapstructure:"signing_key"`
	PublicKeyFile string `mapstructure:"public_key_file"`

	VolunteerWeekday   time.Weekday `mapstructure:"volunteer_weekday"`
	VolunteerStartHour int          `mapstructure:"volunteer_start_hour"`
	VolunteerEndHour   int          `mapstructure:"volunteer_end_hour"`
}

type LibraryConfig struct {
	Timezone        string        `mapstructure:"timezone"`
	OpeningWeekday  time.Weekday  `mapstructure:"opening_weekday"`
	CutoffHour      int           `mapstructure:"cutoff_hour"`
	LoanWeeks       int           `mapstructure:"loan_weeks"`
	ExtendDays      int           `mapstructure:"extend_days"`
	MaxExtensions   int           `mapstructure:"max_extensions"`
	BookingMax      int           `mapstructure:"booking_max"`
	OpeningCacheTTL time.Duration `mapstructure:"opening_cache_ttl"`
	StatsCacheTTL   time.Duration `mapstructure:"stats_cache_ttl"`
}

func (c *LibraryConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

type PricingConfig struct {
	Regular         float64 `mapstructure:"regular"`
	Big             float64 `mapstructure:"big"`
	BigAssociations float64 `mapstructure:"big_associations"`
	Card            float64 `mapstructure:"card"`
	CardValue       float64 `mapstructure:"card_value"`
	Yearly          float64 `mapstructure:"yearly"`
}

func (c *PricingConfig) Pricing() domain.Pricing {
	return domain.Pricing{
		Regular:         decimal.NewFromFloat(c.Regular),
		Big:             decimal.NewFromFloat(c.Big),
		BigAssociations: decimal.NewFromFloat(c.BigAssociations),
		Card:            decimal.NewFromFloat(c.Card),
		CardValue:       decimal.NewFromFloat(c.CardValue),
		Yearly:          decimal.NewFromFloat(c.Yearly),
	}
}

type SchoolHoliday struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type CalendarConfig struct {
	PublicHolidays []string        `mapstructure:"public_holidays"`
	Closures       []string        `mapstructure:"closures"`
	SchoolHolidays []SchoolHoliday `mapstructure:"school_holidays"`
}

type MailConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"`
	CC            string `mapstructure:"cc"`
	MinPeriodDays int    `mapstructure:"min_period_days"`
}

type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	ReportSpec       string `mapstructure:"report_spec"`
	RoleResetSpec    string `mapstructure:"role_reset_spec"`
	PruneLogsSpec    string `mapstructure:"prune_logs_spec"`
	LogRetentionDays int    `mapstructure:"log_retention_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.environment", "development")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.tx_retries", 3)
	v.SetDefault("redis.prefix", "ludo")
	v.SetDefault("rabbitmq.queue", "ludo.events")

	v.SetDefault("auth.apikey_prefix", "akld")
	v.SetDefault("auth.cache_ttl", 5*time.Minute)
	v.SetDefault("auth.volunteer_weekday", int(time.Saturday))
	v.SetDefault("auth.volunteer_start_hour", 10)
	v.SetDefault("auth.volunteer_end_hour", 13)

	v.SetDefault("library.timezone", "Europe/Paris")
	v.SetDefault("library.opening_weekday", int(time.Saturday))
	v.SetDefault("library.cutoff_hour", 13)
	v.SetDefault("library.loan_weeks", 3)
	v.SetDefault("library.extend_days", 14)
	v.SetDefault("library.max_extensions", 1)
	v.SetDefault("library.booking_max", 5)
	v.SetDefault("library.opening_cache_ttl", 6*time.Hour)
	v.SetDefault("library.stats_cache_ttl", 24*time.Hour)

	v.SetDefault("pricing.regular", 0.5)
	v.SetDefault("pricing.big", 5)
	v.SetDefault("pricing.big_associations", 7)
	v.SetDefault("pricing.card", 12)
	v.SetDefault("pricing.card_value", 12.5)
	v.SetDefault("pricing.yearly", 10)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.min_period_days", 15)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.report_spec", "0 2 * * *")
	v.SetDefault("scheduler.role_reset_spec", "0 3 * * 1")
	v.SetDefault("scheduler.prune_logs_spec", "30 3 * * *")
	v.SetDefault("scheduler.log_retention_days", 365)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *AppConfig) validate() error {
	if c.Library.LoanWeeks <= 0 {
		return fmt.Errorf("library.loan_weeks must be positive, got %d", c.Library.LoanWeeks)
	}
	if c.Library.BookingMax < 0 {
		return fmt.Errorf("library.booking_max must not be negative, got %d", c.Library.BookingMax)
	}
	if c.Auth.VolunteerStartHour >= c.Auth.VolunteerEndHour {
		return fmt.Errorf("auth volunteer window is empty (%d-%d)", c.Auth.VolunteerStartHour, c.Auth.VolunteerEndHour)
	}

	return nil
}

func Load(path string) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return decode(v)
}

// Watch reloads the file whenever it changes on disk and hands the new
// configuration to onChange. Invalid edits are reported through onErr and
// otherwise ignored.
func Watch(path string, onChange func(*AppConfig), onErr func(error)) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		onErr(fmt.Errorf("v.ReadInConfig -> %w", err))
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		conf, err := decode(v)
		if err != nil {
			onErr(fmt.Errorf("reload %s -> %w", e.Name, err))
			return
		}

		onChange(conf)
	})
	v.WatchConfig()
}
