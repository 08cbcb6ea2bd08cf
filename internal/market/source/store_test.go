package source

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestMemoryStore
func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)

	entry := Entry{Snapshots: collection("btc", "eth"), FetchedAt: time.Now()}
	require.NoError(t, store.Set(ctx, testKey, entry))
	assert.Equal(t, 1, store.Len())

	got, ok, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"btc", "eth"}, got.Snapshots.IDs())

	// callers get their own slice
	got.Snapshots[0].ID = "mutated"
	again, _, _ := store.Get(ctx, testKey)
	assert.Equal(t, "btc", again.Snapshots[0].ID)

	require.NoError(t, store.Delete(ctx, testKey))
	_, ok, _ = store.Get(ctx, testKey)
	assert.False(t, ok)
}

// go test -v --run TestRedisStore
func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(mr.Addr(), "", 0, "session-a", 30*time.Second)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)

	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry{Snapshots: collection("btc", "eth"), FetchedAt: fetchedAt}
	entry.Snapshots[0].Sparkline = []float64{100, 110, 90}
	require.NoError(t, store.Set(ctx, testKey, entry))

	assert.True(t, mr.Exists("cryptodash:session-a:"+string(testKey)))
	assert.Equal(t, 30*time.Second, mr.TTL("cryptodash:session-a:"+string(testKey)))

	got, ok, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"btc", "eth"}, got.Snapshots.IDs())
	assert.Equal(t, []float64{100, 110, 90}, got.Snapshots[0].Sparkline)
	assert.True(t, fetchedAt.Equal(got.FetchedAt))

	// another session does not see this one's entries
	other, err := NewRedisStore(mr.Addr(), "", 0, "session-b", 30*time.Second)
	require.NoError(t, err)
	defer other.Close()
	_, ok, err = other.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)
	_, ok, err = store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok, "entries expire with the TTL")
}

// go test -v --run TestRedisStoreUnreachable
func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(addr, "", 0, "s", time.Second)
	assert.Error(t, err)
}
