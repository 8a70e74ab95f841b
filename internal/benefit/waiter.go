package benefit

import (
	"context"
	"sync"
	"time"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/poller"
	"go.uber.org/zap"
)

// Waiter watches downstream provisioning after a checkout succeeds, using
// the same dual-channel strategy as the status machine: a push subscription
// triggering an immediate refetch plus an interval poll. It never runs for
// seat-based products, where benefits provision per seat assignment and a
// fixed expected count is meaningless.
type Waiter struct {
	grants   domain.GrantsAPI
	bus      events.Bus
	interval time.Duration
	metrics  *metrics.ReconcilerMetrics
	log      *zap.Logger

	checkoutID string
	expected   int

	mu       sync.Mutex
	granted  int
	stopPoll func()
	handler  func(events.BenefitGrantedPayload)
	stopped  bool
}

func NewWaiter(grants domain.GrantsAPI, bus events.Bus, interval time.Duration, m *metrics.ReconcilerMetrics, log *zap.Logger) *Waiter {
	return &Waiter{
		grants:   grants,
		bus:      bus,
		interval: interval,
		metrics:  m,
		log:      log.Named("benefit.waiter"),
	}
}

// Start arms the waiter for one succeeded checkout. The returned stop
// releases the subscription and any scheduled poll; callers invoke it
// unconditionally on teardown. For seat-mode snapshots stop is a no-op and
// nothing is armed.
func (w *Waiter) Start(ctx context.Context, snap domain.Snapshot) (stop func()) {
	if snap.SeatMode() || snap.ExpectedGrants() == 0 {
		return func() {}
	}

	w.mu.Lock()
	w.checkoutID = snap.ID
	w.expected = snap.ExpectedGrants()
	w.stopped = false
	w.mu.Unlock()

	handler := func(payload events.BenefitGrantedPayload) {
		if payload.CheckoutID != snap.ID {
			return
		}
		w.refetch(ctx)
	}
	if err := w.bus.On(events.TopicBenefitGranted, handler); err != nil {
		w.log.Warn("benefit subscription failed", zap.String("checkout_id", snap.ID), zap.Error(err))
	} else {
		w.mu.Lock()
		w.handler = handler
		w.mu.Unlock()
	}

	p := poller.NewPoller(w.interval, w.log)
	stopPoll := p.Start(ctx, w.refetch)
	w.mu.Lock()
	w.stopPoll = stopPoll
	w.mu.Unlock()

	// Grants may already exist by the time the waiter is armed.
	w.refetch(ctx)

	return w.teardown
}

func (w *Waiter) refetch(ctx context.Context) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	checkoutID := w.checkoutID
	expected := w.expected
	w.mu.Unlock()

	page, err := w.grants.ListGrants(ctx, domain.ListGrantsParams{
		CheckoutID: checkoutID,
		Limit:      expected,
	})
	if err != nil {
		// Best-effort channel: the next tick or event retries.
		w.log.Warn("grant refetch failed", zap.String("checkout_id", checkoutID), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.granted = len(page.Items)
	w.metrics.SetGrantsObserved(w.granted)
	reached := w.granted >= expected
	stopPoll := w.stopPoll
	if reached {
		w.stopPoll = nil
	}
	w.mu.Unlock()

	// Stop scheduling polls once the expected count materialized. The push
	// subscription stays until teardown.
	if reached && stopPoll != nil {
		stopPoll()
	}
}

func (w *Waiter) teardown() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	stopPoll := w.stopPoll
	handler := w.handler
	w.stopPoll = nil
	w.handler = nil
	w.mu.Unlock()

	if stopPoll != nil {
		stopPoll()
	}
	if handler != nil {
		// Teardown can run inside a bus delivery (the session reacts to an
		// open-regression push); Off must not run under the publish lock.
		go func() {
			if err := w.bus.Off(events.TopicBenefitGranted, handler); err != nil {
				w.log.Warn("benefit unsubscribe failed", zap.Error(err))
			}
		}()
	}
}

// Granted returns how many grants have materialized.
func (w *Waiter) Granted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.granted
}

// Pending reports whether the "granting benefits" affordance should show.
func (w *Waiter) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expected > 0 && w.granted < w.expected
}
