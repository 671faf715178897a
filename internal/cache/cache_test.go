package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", payload{ID: 4, Role: "admin"}, time.Minute))

	var got payload
	found, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{ID: 4, Role: "admin"}, got)

	found, err = m.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, m.Set(ctx, "forever", 2, 0))

	now = now.Add(time.Minute)

	var v int
	found, err := m.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, m.Len())

	found, err = m.Get(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestMemory_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", 1, 0))
	require.NoError(t, m.Set(ctx, "b", 2, 0))

	require.NoError(t, m.Delete(ctx, "a"))
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_DecodeError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", "text", 0))

	var v int
	_, err := m.Get(ctx, "k", &v)
	assert.Error(t, err)
}
