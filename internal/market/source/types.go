package source

import (
	"context"
	"errors"
	"time"

	"cryptodash/internal/market/snapshot"
)

// Key identifies one query in the cache, e.g. "markets:usd:market_cap_desc:12".
type Key string

// ErrUnknownKey is returned for keys without a registered fetcher.
var ErrUnknownKey = errors.New("no fetcher registered for key")

// State is the lifecycle of a query as seen by the display layer.
type State int

const (
	StatePending State = iota // no data yet
	StateReady                // data present, last fetch succeeded
	StateFailed               // last fetch failed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a cached fetch result.
type Entry struct {
	Snapshots snapshot.Collection `json:"snapshots"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Result is the latest known state of a query. Snapshots holds the last
// successful collection even when State is StateFailed.
type Result struct {
	State     State
	Snapshots snapshot.Collection
	FetchedAt time.Time
	Err       error
	Fetching  bool
}

// Source is the data-source collaborator the dashboard reads from.
type Source interface {
	GetLatest(key Key) Result
	Invalidate(key Key)
}

// Store holds cache entries. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, e Entry) error
	Delete(ctx context.Context, key Key) error
}

// Fetcher loads a fresh collection for one key.
type Fetcher func(ctx context.Context) (snapshot.Collection, error)
