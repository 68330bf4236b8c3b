package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, mem)

	def, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, def)

	db, err := Open(ctx, Options{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "k.db")})
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &SQLite{}, db)

	remote, err := Open(ctx, Options{Backend: BackendHTTP, URL: "https://example.test/db", AuthSecret: "x"})
	require.NoError(t, err)
	h, ok := remote.(*HTTP)
	require.True(t, ok)
	assert.NotNil(t, h.tokens)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "s3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SetItem(ctx, "a", "1"))
	v, ok, err := m.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.RemoveItem(ctx, "a"))
	_, ok, _ = m.GetItem(ctx, "a")
	assert.False(t, ok)
}
