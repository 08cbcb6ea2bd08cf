package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestPollerRunsImmediatelyAndOnTicks
func TestPollerRunsImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int32
	p := &Poller{
		Interval: 20 * time.Millisecond,
		Refresh:  func(ctx context.Context) { calls.Add(1) },
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := p.Start(ctx)

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

// go test -v --run TestPollerCancelledBeforeStart
func TestPollerCancelledBeforeStart(t *testing.T) {
	var calls atomic.Int32
	p := &Poller{
		Interval: time.Hour,
		Refresh:  func(ctx context.Context) { calls.Add(1) },
		Logger:   zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	<-p.Start(ctx)
	assert.EqualValues(t, 0, calls.Load())
}
