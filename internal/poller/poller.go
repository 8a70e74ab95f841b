package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a refresh function on a fixed cadence. Start returns the stop
// function; leaking a running poller is a correctness bug, so callers invoke
// stop unconditionally on teardown. No backoff, no jitter: the fallback
// channel stays deliberately dumb.
type Poller struct {
	interval time.Duration
	log      *zap.Logger
}

func NewPoller(interval time.Duration, log *zap.Logger) *Poller {
	return &Poller{interval: interval, log: log.Named("poller")}
}

// Start schedules fn every interval until stop is called or ctx is done.
// The returned stop is idempotent.
func (p *Poller) Start(ctx context.Context, fn func(context.Context)) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(done)
		})
	}

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	return stop
}
