package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cryptodash/internal/market/snapshot"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey Key = "markets:usd:market_cap_desc:12"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSource(t *testing.T, fetch Fetcher) (*QuerySource, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	q := NewQuerySource(NewMemoryStore(), 25*time.Second, zap.NewNop())
	q.now = clock.Now
	q.Register(testKey, fetch)
	return q, clock
}

func collection(ids ...string) snapshot.Collection {
	c := make(snapshot.Collection, len(ids))
	for i, id := range ids {
		c[i] = snapshot.AssetSnapshot{ID: id, Symbol: id}
	}
	return c
}

// go test -v --run TestQuerySourceFreshWindow
func TestQuerySourceFreshWindow(t *testing.T) {
	var calls atomic.Int32
	q, clock := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		calls.Add(1)
		return collection("btc", "eth"), nil
	})

	assert.Equal(t, StatePending, q.GetLatest(testKey).State)

	res := q.Ensure(context.Background(), testKey)
	require.Equal(t, StateReady, res.State)
	assert.Equal(t, []string{"btc", "eth"}, res.Snapshots.IDs())
	assert.EqualValues(t, 1, calls.Load())

	clock.Advance(24 * time.Second)
	q.Ensure(context.Background(), testKey)
	assert.EqualValues(t, 1, calls.Load(), "fresh data is served from cache")

	clock.Advance(2 * time.Second)
	q.Ensure(context.Background(), testKey)
	assert.EqualValues(t, 2, calls.Load(), "stale data is refetched")

	q.Refetch(context.Background(), testKey)
	assert.EqualValues(t, 3, calls.Load(), "refetch ignores freshness")
}

// go test -v --run TestQuerySourceInvalidate
func TestQuerySourceInvalidate(t *testing.T) {
	var calls atomic.Int32
	q, _ := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		calls.Add(1)
		return collection("btc"), nil
	})

	q.Ensure(context.Background(), testKey)
	q.Invalidate(testKey)
	assert.Equal(t, StateReady, q.GetLatest(testKey).State, "data stays visible")

	q.Ensure(context.Background(), testKey)
	assert.EqualValues(t, 2, calls.Load())

	q.Ensure(context.Background(), testKey)
	assert.EqualValues(t, 2, calls.Load(), "invalidation is cleared by a successful fetch")
}

// go test -v --run TestQuerySourceCoalesces
func TestQuerySourceCoalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	q, _ := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return collection("btc"), nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Refetch(context.Background(), testKey)
	}()
	<-started

	assert.True(t, q.GetLatest(testKey).Fetching)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Refetch(context.Background(), testKey)
		}()
	}
	// let the followers reach the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	res := q.GetLatest(testKey)
	assert.Equal(t, StateReady, res.State)
	assert.False(t, res.Fetching)
}

// go test -v --run TestQuerySourceFailureKeepsData
func TestQuerySourceFailureKeepsData(t *testing.T) {
	fail := errors.New("boom")
	var shouldFail atomic.Bool

	q, _ := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		if shouldFail.Load() {
			return nil, fail
		}
		return collection("btc", "eth"), nil
	})

	var notified []State
	var mu sync.Mutex
	q.Subscribe(func(k Key, r Result) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, r.State)
	})

	q.Refetch(context.Background(), testKey)
	shouldFail.Store(true)
	res := q.Refetch(context.Background(), testKey)

	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, fail)
	assert.Equal(t, []string{"btc", "eth"}, res.Snapshots.IDs(), "previous data retained")

	shouldFail.Store(false)
	res = q.Refetch(context.Background(), testKey)
	assert.Equal(t, StateReady, res.State)
	assert.NoError(t, res.Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateReady, StateFailed, StateReady}, notified)
}

// go test -v --run TestQuerySourceFailureWithoutData
func TestQuerySourceFailureWithoutData(t *testing.T) {
	q, _ := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		return nil, errors.New("down")
	})

	res := q.Ensure(context.Background(), testKey)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.Snapshots)
}

// go test -v --run TestQuerySourceUnknownKey
func TestQuerySourceUnknownKey(t *testing.T) {
	q, _ := newTestSource(t, nil)
	res := q.Ensure(context.Background(), "other")
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, ErrUnknownKey)
}

// go test -v --run TestQuerySourceCallerCancel
func TestQuerySourceCallerCancel(t *testing.T) {
	release := make(chan struct{})
	q, _ := newTestSource(t, func(ctx context.Context) (snapshot.Collection, error) {
		<-release
		return collection("btc"), ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := q.Refetch(ctx, testKey)
	assert.Equal(t, StatePending, res.State)

	close(release)
	require.Eventually(t, func() bool {
		return q.GetLatest(testKey).State == StateReady
	}, time.Second, 10*time.Millisecond, "shared fetch completes without the caller")
}

// go test -v --run TestQuerySourceOutlivesStoreExpiry
func TestQuerySourceOutlivesStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), "", 0, "session", 30*time.Second)
	require.NoError(t, err)
	defer store.Close()

	var shouldFail atomic.Bool
	q := NewQuerySource(store, 25*time.Second, zap.NewNop())
	q.Register(testKey, func(ctx context.Context) (snapshot.Collection, error) {
		if shouldFail.Load() {
			return nil, errors.New("rate limited")
		}
		return collection("btc", "eth"), nil
	})

	require.Equal(t, StateReady, q.Refetch(context.Background(), testKey).State)

	mr.FastForward(31 * time.Second)
	assert.Empty(t, mr.Keys(), "redis entry expired")

	res := q.GetLatest(testKey)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, []string{"btc", "eth"}, res.Snapshots.IDs())

	shouldFail.Store(true)
	res = q.Refetch(context.Background(), testKey)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []string{"btc", "eth"}, res.Snapshots.IDs(), "previous data retained")
}
