package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludotheque/ludo-api/internal/cache"
	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/notify"
)

type recordingPublisher struct {
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestNewServices(t *testing.T) {
	conf, err := config.Load("config.yml")
	require.NoError(t, err)
	conf.Auth.SigningKey = "test-secret"

	services, err := newServices(conf, nil, nil, &recordingPublisher{})
	require.NoError(t, err)

	assert.NotNil(t, services.Identity)
	assert.NotNil(t, services.Opening)
	assert.NotNil(t, services.Loans)
	assert.NotNil(t, services.Bookings)
	assert.NotNil(t, services.Users)
	assert.NotNil(t, services.Items)
	assert.NotNil(t, services.Stats)
	assert.NotNil(t, services.Ledger)
	assert.NotNil(t, services.Reminders)
	assert.Equal(t, conf.Pricing.Pricing(), services.Loans.Pricing())
}

func TestNewServices_NoSigningKey(t *testing.T) {
	conf, err := config.Load("config.yml")
	require.NoError(t, err)
	conf.Auth.SigningKey = ""
	conf.Auth.PublicKeyFile = ""

	_, err = newServices(conf, nil, nil, notify.Log{})
	assert.Error(t, err)
}

func TestNewStore_WithoutRedis(t *testing.T) {
	assert.IsType(t, &cache.Memory{}, newStore(nil, &config.RedisConfig{Prefix: "ludo"}, "stats"))
}
