package poller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller runs Refresh once at start and then on every tick of Interval until
// the context is cancelled. Ticks that arrive while Refresh is still running
// are dropped by the ticker.
type Poller struct {
	Interval time.Duration
	Refresh  func(ctx context.Context)
	Logger   *zap.Logger
}

// Start launches the polling goroutine. The returned channel closes when it exits.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ctx)
	}()
	return done
}

func (p *Poller) run(ctx context.Context) {
	// Run immediately once at startup
	p.runOnce(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("poller stopped", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.Logger.Debug("poll tick", zap.Duration("interval", p.Interval))
	p.Refresh(ctx)
}
