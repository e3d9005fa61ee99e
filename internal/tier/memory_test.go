package tier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstride/mediacache/resource"
)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, "a", []byte("payload-a")))
	data, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-a"), data)
	assert.Equal(t, int64(9), m.Bytes())
	assert.True(t, m.Contains("a"))

	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), m.Bytes())
	assert.False(t, m.Contains("a"))

	// Deleting an absent id is not an error.
	require.NoError(t, m.Delete(ctx, "a"))
}

func TestMemory_ReplaceAdjustsBytes(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", make([]byte, 100)))
	require.NoError(t, m.Put(ctx, "a", make([]byte, 40)))
	assert.Equal(t, int64(40), m.Bytes())

	require.NoError(t, m.Put(ctx, "a", make([]byte, 70)))
	assert.Equal(t, int64(70), m.Bytes())
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", []byte("x")))
	require.NoError(t, m.Put(ctx, "b", []byte("y")))
	require.NoError(t, m.Clear(ctx))

	assert.Equal(t, int64(0), m.Bytes())
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ResourceControllerDenies(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	m := NewMemory(rc)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", make([]byte, 80)))
	assert.ErrorIs(t, m.Put(ctx, "b", make([]byte, 40)), ErrMemoryLimit)

	// The denied put must not leak controller budget.
	require.NoError(t, m.Delete(ctx, "a"))
	assert.Equal(t, int64(0), rc.MemoryUsage())
	require.NoError(t, m.Put(ctx, "b", make([]byte, 100)))
}

func TestMemory_ClearReleasesController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	m := NewMemory(rc)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", make([]byte, 60)))
	require.NoError(t, m.Put(ctx, "b", make([]byte, 40)))
	require.NoError(t, m.Clear(ctx))

	assert.Equal(t, int64(0), rc.MemoryUsage())
	require.NoError(t, m.Put(ctx, "c", make([]byte, 100)))
}
