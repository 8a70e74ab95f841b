package benefit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/events"
	"go.uber.org/zap"
)

type fakeGrantsAPI struct {
	mu    sync.Mutex
	items []domain.BenefitGrant
	calls int
}

func (f *fakeGrantsAPI) ListGrants(ctx context.Context, params domain.ListGrantsParams) (*domain.GrantPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	items := make([]domain.BenefitGrant, len(f.items))
	copy(items, f.items)
	return &domain.GrantPage{Items: items, TotalCount: len(items)}, nil
}

func (f *fakeGrantsAPI) setItems(items []domain.BenefitGrant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeGrantsAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func succeededSnapshot(benefits int) domain.Snapshot {
	snap := domain.Snapshot{
		ID:     "co_1",
		Status: domain.StatusSucceeded,
	}
	for i := 0; i < benefits; i++ {
		snap.Product.Benefits = append(snap.Product.Benefits, domain.Benefit{ID: "ben_1"})
	}
	return snap
}

func TestWaiterStopsPollingAtExpectedCount(t *testing.T) {
	grants := &fakeGrantsAPI{}
	grants.setItems([]domain.BenefitGrant{
		{ID: "grant_1", BenefitID: "ben_1", CheckoutID: "co_1"},
		{ID: "grant_2", BenefitID: "ben_2", CheckoutID: "co_1"},
	})
	w := NewWaiter(grants, events.NewBus(), time.Millisecond, nil, zap.NewNop())

	stop := w.Start(context.Background(), succeededSnapshot(2))
	defer stop()

	deadline := time.Now().Add(time.Second)
	for w.Granted() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.Granted() != 2 {
		t.Fatalf("expected 2 grants, got %d", w.Granted())
	}
	if w.Pending() {
		t.Fatalf("expected waiter settled at expected count")
	}

	settled := grants.callCount()
	time.Sleep(20 * time.Millisecond)
	// One poll may already have been in flight when the count was reached.
	if grants.callCount() > settled+1 {
		t.Fatalf("expected polling to stop at expected count, got %d then %d", settled, grants.callCount())
	}
}

func TestWaiterDisabledForSeatBasedPricing(t *testing.T) {
	grants := &fakeGrantsAPI{}
	w := NewWaiter(grants, events.NewBus(), time.Millisecond, nil, zap.NewNop())

	seats := 3
	snap := succeededSnapshot(1)
	snap.Seats = &seats
	snap.Product.Prices = []domain.Price{{ID: "price_1", AmountType: domain.AmountTypeSeatBased}}

	stop := w.Start(context.Background(), snap)
	defer stop()

	time.Sleep(20 * time.Millisecond)
	if grants.callCount() != 0 {
		t.Fatalf("expected no grant polling for seat-based product, got %d calls", grants.callCount())
	}
}

func TestPushEventTriggersImmediateRefetch(t *testing.T) {
	grants := &fakeGrantsAPI{}
	bus := events.NewBus()
	// Long interval so only push can drive refetches after the initial one.
	w := NewWaiter(grants, bus, time.Hour, nil, zap.NewNop())

	stop := w.Start(context.Background(), succeededSnapshot(2))
	defer stop()

	initial := grants.callCount()
	grants.setItems([]domain.BenefitGrant{{ID: "grant_1", BenefitID: "ben_1", CheckoutID: "co_1"}})
	bus.Emit(events.TopicBenefitGranted, events.BenefitGrantedPayload{CheckoutID: "co_1", GrantID: "grant_1"})

	if grants.callCount() != initial+1 {
		t.Fatalf("expected push event to refetch, got %d calls after %d", grants.callCount(), initial)
	}
	if w.Granted() != 1 {
		t.Fatalf("expected 1 grant observed, got %d", w.Granted())
	}
	if !w.Pending() {
		t.Fatalf("expected waiter still pending below expected count")
	}
}

func TestPushEventForOtherCheckoutIgnored(t *testing.T) {
	grants := &fakeGrantsAPI{}
	bus := events.NewBus()
	w := NewWaiter(grants, bus, time.Hour, nil, zap.NewNop())

	stop := w.Start(context.Background(), succeededSnapshot(1))
	defer stop()

	initial := grants.callCount()
	bus.Emit(events.TopicBenefitGranted, events.BenefitGrantedPayload{CheckoutID: "co_other", GrantID: "grant_9"})

	if grants.callCount() != initial {
		t.Fatalf("expected foreign checkout event to be ignored")
	}
}

func TestTeardownInsideBusDeliveryReturns(t *testing.T) {
	grants := &fakeGrantsAPI{}
	bus := events.NewBus()
	w := NewWaiter(grants, bus, time.Hour, nil, zap.NewNop())

	stop := w.Start(context.Background(), succeededSnapshot(2))

	// A checkout-level handler may tear the waiter down while the bus is
	// mid-publish; the emit must still return.
	if err := bus.On(events.TopicCheckoutUpdated, func(payload events.CheckoutUpdatedPayload) {
		stop()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	emitted := make(chan struct{})
	go func() {
		bus.Emit(events.TopicCheckoutUpdated, events.CheckoutUpdatedPayload{
			Checkout: domain.Snapshot{ID: "co_1", Status: domain.StatusOpen},
		})
		close(emitted)
	}()
	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatalf("bus emit blocked on waiter teardown")
	}
}

func TestTeardownReleasesChannels(t *testing.T) {
	grants := &fakeGrantsAPI{}
	bus := events.NewBus()
	w := NewWaiter(grants, bus, time.Millisecond, nil, zap.NewNop())

	stop := w.Start(context.Background(), succeededSnapshot(3))
	stop()
	// Teardown must be idempotent.
	stop()

	settled := grants.callCount()
	bus.Emit(events.TopicBenefitGranted, events.BenefitGrantedPayload{CheckoutID: "co_1", GrantID: "grant_1"})
	time.Sleep(20 * time.Millisecond)

	if grants.callCount() > settled {
		t.Fatalf("expected no refetches after teardown, got %d then %d", settled, grants.callCount())
	}
}
