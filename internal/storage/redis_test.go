package storage

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, "kanstore:"), mr
}

func TestRedis_SetGetRemove(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := r.GetItem(ctx, "wedding-store")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetItem(ctx, "wedding-store", `{"guestCount":3}`))

	raw, err := mr.Get("kanstore:wedding-store")
	require.NoError(t, err)
	assert.Equal(t, `{"guestCount":3}`, raw)

	value, ok, err := r.GetItem(ctx, "wedding-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"guestCount":3}`, value)

	require.NoError(t, r.RemoveItem(ctx, "wedding-store"))
	assert.False(t, mr.Exists("kanstore:wedding-store"))
}

func TestRedis_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	r := NewRedis(client, "")
	mr.Close()

	_, _, err = r.GetItem(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, IsAdapterError(err))
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r, err := OpenRedis(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetItem(context.Background(), "k", `1`))
	assert.True(t, mr.Exists("k"))
}
