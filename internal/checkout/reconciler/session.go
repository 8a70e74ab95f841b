package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/polarsource/polar-sub007/internal/analytics"
	"github.com/polarsource/polar-sub007/internal/benefit"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/checkout/store"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/journal"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/payment/confirm"
	"github.com/polarsource/polar-sub007/internal/poller"
	"github.com/polarsource/polar-sub007/internal/redirect"
	"go.uber.org/zap"
)

// Update channels feeding the store.
const (
	channelInitial = "initial"
	channelPush    = "push"
	channelPoll    = "poll"
)

// Deps are the collaborators one session reconciles against.
type Deps struct {
	Config    Config
	Log       *zap.Logger
	API       domain.API
	Bus       events.Bus
	Confirm   *confirm.Coordinator
	Waiter    *benefit.Waiter
	Redirects *redirect.Dispatcher
	Sink      analytics.Sink
	Journal   *journal.Recorder
	Metrics   *metrics.ReconcilerMetrics
}

// Session reconciles one checkout attempt against the server. Push events
// and poll ticks funnel into the same apply path; the snapshot is replaced
// wholesale on every arrival and side effects are re-armed from the new
// status. One-shot effects (payment follow-up, terminal redirect, analytics
// capture) are latched and fire at most once however many snapshots arrive.
type Session struct {
	cfg       Config
	log       *zap.Logger
	api       domain.API
	bus       events.Bus
	confirm   *confirm.Coordinator
	waiter    *benefit.Waiter
	redirects *redirect.Dispatcher
	sink      analytics.Sink
	journal   *journal.Recorder
	metrics   *metrics.ReconcilerMetrics

	clientSecret string

	mu            sync.Mutex
	store         *store.Store
	handler       func(events.CheckoutUpdatedPayload)
	stopPoll      func()
	stopBenefits  func()
	benefitsArmed bool
	tracked       bool
	closed        bool
	failed        bool
}

func NewSession(clientSecret string, deps Deps) *Session {
	sink := deps.Sink
	if sink == nil {
		sink = analytics.NoopSink{}
	}
	return &Session{
		cfg:          deps.Config.withDefaults(),
		log:          deps.Log.Named("checkout.reconciler"),
		api:          deps.API,
		bus:          deps.Bus,
		confirm:      deps.Confirm,
		waiter:       deps.Waiter,
		redirects:    deps.Redirects,
		sink:         sink,
		journal:      deps.Journal,
		metrics:      deps.Metrics,
		clientSecret: clientSecret,
	}
}

// Start fetches the initial snapshot, arms the push and poll channels and
// evaluates side effects for the seeded status. The returned stop releases
// every subscription and timer; callers invoke it unconditionally on
// teardown. With Config.Disabled set, Start only seeds the store.
func (s *Session) Start(ctx context.Context) (stop func(), err error) {
	snap, err := s.api.Get(ctx, s.clientSecret)
	if err != nil {
		return nil, fmt.Errorf("initial checkout fetch: %w", err)
	}

	s.mu.Lock()
	s.store = store.New(*snap)
	s.mu.Unlock()

	s.journal.Transition(ctx, snap.ID, "", snap.Status, map[string]any{"channel": channelInitial})
	s.metrics.ObserveTransition(snap.Status.String(), channelInitial)

	if s.cfg.Disabled {
		return s.Stop, nil
	}

	handler := func(payload events.CheckoutUpdatedPayload) {
		if payload.Checkout.ID != snap.ID {
			return
		}
		s.apply(ctx, payload.Checkout, channelPush)
	}
	if err := s.bus.On(events.TopicCheckoutUpdated, handler); err != nil {
		return nil, fmt.Errorf("checkout subscription: %w", err)
	}
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()

	s.evaluate(ctx, "", *snap, channelInitial)
	return s.Stop, nil
}

// Current returns the latest snapshot.
func (s *Session) Current() domain.Snapshot {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return domain.Snapshot{}
	}
	return st.Current()
}

// Failed reports whether the checkout reached the terminal failed status.
func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// GrantsPending reports whether benefit provisioning is still in progress.
func (s *Session) GrantsPending() bool {
	return s.waiter != nil && s.waiter.Pending()
}

// Stop tears the session down. Idempotent.
func (s *Session) Stop() {
	s.teardown()
}

// refresh is the poll channel: fetch and funnel into the same apply path as
// push. Fetch failures are transient; the next tick retries.
func (s *Session) refresh(ctx context.Context) {
	snap, err := s.api.Get(ctx, s.clientSecret)
	if err != nil {
		s.metrics.ObservePollTick(false)
		s.log.Warn("status poll failed", zap.Error(err))
		return
	}
	s.metrics.ObservePollTick(true)
	s.apply(ctx, *snap, channelPoll)
}

func (s *Session) apply(ctx context.Context, next domain.Snapshot, channel string) {
	s.mu.Lock()
	if s.closed || s.store == nil {
		s.mu.Unlock()
		return
	}
	st := s.store
	s.mu.Unlock()

	prev := st.Replace(next)
	if prev.Status != next.Status {
		s.journal.Transition(ctx, next.ID, prev.Status, next.Status, map[string]any{"channel": channel})
		s.metrics.ObserveTransition(next.Status.String(), channel)
		s.log.Info("checkout status changed",
			zap.String("checkout_id", next.ID),
			zap.String("from", prev.Status.String()),
			zap.String("to", next.Status.String()),
			zap.String("channel", channel),
		)
	}
	s.evaluate(ctx, prev.Status, next, channel)
}

// evaluate re-arms side effects for the status just entered. prev is the
// zero Status on the seed pass.
func (s *Session) evaluate(ctx context.Context, prev domain.Status, next domain.Snapshot, channel string) {
	// A checkout observed open while the local view was further along means
	// the server expired or restarted it: reopen and abandon the machine.
	if next.Status == domain.StatusOpen && prev != "" && prev != domain.StatusOpen {
		if s.redirects.Dispatch(ctx, next.ID, redirect.KindReopen, next.URL) {
			s.metrics.ObserveRedirect(string(redirect.KindReopen))
		}
		s.teardown()
		return
	}

	switch next.Status {
	case domain.StatusOpen:
		s.stopPolling()
	case domain.StatusConfirmed:
		s.ensurePolling(ctx)
		s.confirm.Reconcile(ctx, next)
	case domain.StatusSucceeded:
		s.stopPolling()
		s.unsubscribe()
		s.trackCompletion(ctx, next)
		if s.redirects.Dispatch(ctx, next.ID, redirect.KindConfirmed, next.SuccessURL) {
			s.metrics.ObserveRedirect(string(redirect.KindConfirmed))
		}
		// Benefit provisioning runs its own dual-channel sub-machine after
		// the terminal dispatch.
		s.ensureBenefits(ctx, next)
	case domain.StatusFailed:
		s.stopPolling()
		s.unsubscribe()
		s.mu.Lock()
		s.failed = true
		s.mu.Unlock()
	}
}

// ensurePolling arms the status poll while waiting for confirmed to settle.
func (s *Session) ensurePolling(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stopPoll != nil {
		return
	}
	p := poller.NewPoller(s.cfg.MaxWaitingTime, s.log)
	s.stopPoll = p.Start(ctx, s.refresh)
}

func (s *Session) stopPolling() {
	s.mu.Lock()
	stop := s.stopPoll
	s.stopPoll = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Session) ensureBenefits(ctx context.Context, snap domain.Snapshot) {
	if s.waiter == nil {
		return
	}
	s.mu.Lock()
	if s.closed || s.benefitsArmed {
		s.mu.Unlock()
		return
	}
	// Reserve the slot first so a duplicate succeeded snapshot cannot arm
	// the waiter twice.
	s.benefitsArmed = true
	s.mu.Unlock()

	// Arming subscribes on the bus; Subscribe must not run inside a bus
	// delivery for the same reason Off must not (the bus holds its lock
	// while publishing to synchronous handlers).
	go func() {
		stop := s.waiter.Start(ctx, snap)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			stop()
			return
		}
		s.stopBenefits = stop
		s.mu.Unlock()
	}()
}

func (s *Session) trackCompletion(ctx context.Context, snap domain.Snapshot) {
	s.mu.Lock()
	if s.tracked {
		s.mu.Unlock()
		return
	}
	s.tracked = true
	s.mu.Unlock()

	s.sink.Capture(ctx, analytics.EventCheckoutCompleted, map[string]any{
		"checkout_id": snap.ID,
		"product_id":  snap.Product.ID,
		"seat_based":  snap.SeatMode(),
	})
	s.journal.SideEffect(ctx, snap.ID, journal.KindAnalytics, map[string]any{
		"event": analytics.EventCheckoutCompleted,
	})
}

// unsubscribe releases the checkout-level push subscription once the
// checkout-level machine is terminal. The benefit-level subscription has its
// own lifecycle inside the waiter.
func (s *Session) unsubscribe() {
	s.mu.Lock()
	handler := s.handler
	s.handler = nil
	s.mu.Unlock()
	if handler == nil {
		return
	}
	// Off must not run inside a bus delivery: the bus holds its lock while
	// publishing to synchronous handlers.
	go func() {
		if err := s.bus.Off(events.TopicCheckoutUpdated, handler); err != nil {
			s.log.Warn("checkout unsubscribe failed", zap.Error(err))
		}
	}()
}

func (s *Session) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stopPoll := s.stopPoll
	stopBenefits := s.stopBenefits
	s.stopPoll = nil
	s.stopBenefits = nil
	s.mu.Unlock()

	if stopPoll != nil {
		stopPoll()
	}
	if stopBenefits != nil {
		stopBenefits()
	}
	s.unsubscribe()
}
