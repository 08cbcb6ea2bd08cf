package source

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// storeTimeout bounds store calls made without a caller context.
const storeTimeout = 2 * time.Second

type queryStatus struct {
	err         error
	fetching    int
	invalidated bool
}

// QuerySource is a session query cache in front of registered fetchers.
//
// Concurrent fetches of one key are coalesced into a single upstream request.
// Data younger than the stale time is served without fetching unless a
// refetch is forced. A failed fetch keeps the previous entry and marks the
// query failed until the next success. The last successful entry of every key
// is also held in process, so an expired or unreachable store never hides it.
type QuerySource struct {
	store     Store
	staleTime time.Duration
	logger    *zap.Logger
	now       func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	fetchers  map[Key]Fetcher
	status    map[Key]*queryStatus
	last      map[Key]Entry
	listeners []func(Key, Result)
}

func NewQuerySource(store Store, staleTime time.Duration, logger *zap.Logger) *QuerySource {
	return &QuerySource{
		store:     store,
		staleTime: staleTime,
		logger:    logger,
		now:       time.Now,
		fetchers:  make(map[Key]Fetcher),
		status:    make(map[Key]*queryStatus),
		last:      make(map[Key]Entry),
	}
}

// Register binds a fetcher to key.
func (q *QuerySource) Register(key Key, fetch Fetcher) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fetchers[key] = fetch
}

// Subscribe adds fn to the listeners called after every completed fetch.
// Listeners run on the fetching goroutine and must not block.
func (q *QuerySource) Subscribe(fn func(Key, Result)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// GetLatest returns the current state of key without fetching.
func (q *QuerySource) GetLatest(key Key) Result {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	e, ok := q.load(ctx, key)
	return q.result(key, e, ok)
}

// Invalidate marks key stale so the next Ensure fetches. Cached data stays
// visible until that fetch completes.
func (q *QuerySource) Invalidate(key Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statusOf(key).invalidated = true
}

// Ensure returns cached data while it is fresh and fetches otherwise.
func (q *QuerySource) Ensure(ctx context.Context, key Key) Result {
	if e, ok := q.load(ctx, key); ok && q.isFresh(key, e) {
		return q.result(key, e, true)
	}
	return q.fetch(ctx, key)
}

// Refetch fetches key regardless of freshness, joining any fetch in flight.
func (q *QuerySource) Refetch(ctx context.Context, key Key) Result {
	return q.fetch(ctx, key)
}

func (q *QuerySource) fetch(ctx context.Context, key Key) Result {
	q.mu.Lock()
	fetcher, ok := q.fetchers[key]
	q.mu.Unlock()
	if !ok {
		return Result{State: StateFailed, Err: ErrUnknownKey}
	}

	// The shared request must outlive any single caller that gives up.
	fetchCtx := context.WithoutCancel(ctx)
	ch := q.group.DoChan(string(key), func() (any, error) {
		return nil, q.run(fetchCtx, key, fetcher)
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
	return q.GetLatest(key)
}

func (q *QuerySource) run(ctx context.Context, key Key, fetcher Fetcher) error {
	q.mu.Lock()
	q.statusOf(key).fetching++
	q.mu.Unlock()

	start := q.now()
	snaps, err := fetcher(ctx)

	var entry Entry
	if err == nil {
		entry = Entry{Snapshots: snaps, FetchedAt: q.now()}
		if serr := q.store.Set(ctx, key, entry); serr != nil {
			q.logger.Warn("failed to cache fetch result", zap.String("key", string(key)), zap.Error(serr))
		}
	}

	q.mu.Lock()
	st := q.statusOf(key)
	st.fetching--
	st.err = err
	if err == nil {
		st.invalidated = false
		q.last[key] = entry
	}
	listeners := slices.Clone(q.listeners)
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("fetch failed", zap.String("key", string(key)), zap.Error(err))
	} else {
		q.logger.Debug("fetch completed",
			zap.String("key", string(key)),
			zap.Int("count", len(snaps)),
			zap.Duration("took", q.now().Sub(start)))
	}

	if len(listeners) > 0 {
		res := q.GetLatest(key)
		for _, fn := range listeners {
			fn(key, res)
		}
	}
	return err
}

// load reads key from the store, falling back to the last successful entry
// when the store has none.
func (q *QuerySource) load(ctx context.Context, key Key) (Entry, bool) {
	e, ok, err := q.store.Get(ctx, key)
	if err != nil {
		q.logger.Warn("cache read failed", zap.String("key", string(key)), zap.Error(err))
	}
	if err == nil && ok {
		return e, true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok = q.last[key]
	return e, ok
}

func (q *QuerySource) isFresh(key Key, e Entry) bool {
	q.mu.Lock()
	invalidated := q.statusOf(key).invalidated
	q.mu.Unlock()
	return !invalidated && q.now().Sub(e.FetchedAt) < q.staleTime
}

func (q *QuerySource) result(key Key, e Entry, ok bool) Result {
	q.mu.Lock()
	st := q.statusOf(key)
	res := Result{Err: st.err, Fetching: st.fetching > 0}
	q.mu.Unlock()

	if ok {
		res.Snapshots = e.Snapshots
		res.FetchedAt = e.FetchedAt
	}

	switch {
	case res.Err != nil:
		res.State = StateFailed
	case ok:
		res.State = StateReady
	default:
		res.State = StatePending
	}
	return res
}

// statusOf must be called with q.mu held.
func (q *QuerySource) statusOf(key Key) *queryStatus {
	st, ok := q.status[key]
	if !ok {
		st = &queryStatus{}
		q.status[key] = st
	}
	return st
}
