package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "api:\n  port: \"9000\"\n")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", conf.API.Port)
	assert.Equal(t, "akld", conf.Auth.APIKeyPrefix)
	assert.Equal(t, 5*time.Minute, conf.Auth.CacheTTL)
	assert.Equal(t, time.Saturday, conf.Library.OpeningWeekday)
	assert.Equal(t, 3, conf.Library.LoanWeeks)
	assert.Equal(t, 5, conf.Library.BookingMax)
	assert.Equal(t, 12.5, conf.Pricing.CardValue)
	assert.Equal(t, 15, conf.Mail.MinPeriodDays)
	assert.Equal(t, 3, conf.Postgres.TxRetries)

	p := conf.Pricing.Pricing()
	assert.Equal(t, "12.5", p.CardValue.String())
	assert.Equal(t, "0.5", p.Regular.String())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
library:
  booking_max: 2
  timezone: UTC
pricing:
  big: 6
auth:
  production: true
  cache_ttl: 30s
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, conf.Library.BookingMax)
	assert.Equal(t, time.UTC, conf.Library.Location())
	assert.Equal(t, float64(6), conf.Pricing.Big)
	assert.True(t, conf.Auth.Production)
	assert.Equal(t, 30*time.Second, conf.Auth.CacheTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "library:\n  booking_max: 2\n")
	t.Setenv("LUDO_LIBRARY_BOOKING_MAX", "7")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, conf.Library.BookingMax)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no loan weeks", body: "library:\n  loan_weeks: 0\n"},
		{name: "negative quota", body: "library:\n  booking_max: -1\n"},
		{name: "empty window", body: "auth:\n  volunteer_start_hour: 13\n  volunteer_end_hour: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLibraryConfig_LocationFallback(t *testing.T) {
	c := &LibraryConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, c.Location())
}

func TestWatch_ReloadsPricing(t *testing.T) {
	path := writeConfig(t, "pricing:\n  big: 5\n")

	reloaded := make(chan *AppConfig, 4)
	Watch(path, func(conf *AppConfig) { reloaded <- conf }, func(err error) { t.Log(err) })

	require.NoError(t, os.WriteFile(path, []byte("pricing:\n  big: 8\n"), 0o600))

	select {
	case conf := <-reloaded:
		assert.Equal(t, "8", conf.Pricing.Pricing().Big.String())
	case <-time.After(5 * time.Second):
		t.Fatal("configuration change not picked up")
	}
}
