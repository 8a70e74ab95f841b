package confirm

import (
	"context"
	"errors"
	"testing"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"go.uber.org/zap"
)

type fakeConfirmClient struct {
	calls int
	err   error
}

func (f *fakeConfirmClient) HandleNextAction(ctx context.Context, intentClientSecret string) error {
	f.calls++
	return f.err
}

func confirmedSnapshot() domain.Snapshot {
	return domain.Snapshot{
		ID:               "co_1",
		Status:           domain.StatusConfirmed,
		PaymentProcessor: domain.ProcessorStripe,
		PaymentProcessorMetadata: domain.ProcessorMetadata{
			IntentStatus:       domain.IntentStatusRequiresAction,
			IntentClientSecret: "pi_secret_1",
		},
	}
}

func TestFollowUpRunsAtMostOnce(t *testing.T) {
	client := &fakeConfirmClient{}
	c := NewCoordinator(client, nil, nil, zap.NewNop())

	snap := confirmedSnapshot()
	for i := 0; i < 5; i++ {
		c.Reconcile(context.Background(), snap)
	}

	if client.calls != 1 {
		t.Fatalf("expected exactly 1 follow-up call across refreshes, got %d", client.calls)
	}
	if !c.Done() {
		t.Fatalf("expected coordinator done after successful follow-up")
	}
}

func TestAlreadyConfirmedRaceTreatedAsSuccess(t *testing.T) {
	client := &fakeConfirmClient{err: &stripe.Error{
		Name:    stripe.ErrNameIntegration,
		Message: "PaymentIntent has a status of succeeded",
	}}
	c := NewCoordinator(client, nil, nil, zap.NewNop())

	c.Reconcile(context.Background(), confirmedSnapshot())

	if !c.Done() {
		t.Fatalf("expected classified race to land as done")
	}
	c.Reconcile(context.Background(), confirmedSnapshot())
	if client.calls != 1 {
		t.Fatalf("expected no further calls after classified race, got %d", client.calls)
	}
}

func TestUnclassifiedErrorLeavesRetryable(t *testing.T) {
	client := &fakeConfirmClient{err: errors.New("network down")}
	c := NewCoordinator(client, nil, nil, zap.NewNop())

	c.Reconcile(context.Background(), confirmedSnapshot())
	if got := c.State(); got != StateIdle {
		t.Fatalf("expected idle after unclassified error, got %s", got)
	}

	// Next confirmed refresh retries.
	client.err = nil
	c.Reconcile(context.Background(), confirmedSnapshot())
	if client.calls != 2 {
		t.Fatalf("expected retry on next refresh, got %d calls", client.calls)
	}
	if !c.Done() {
		t.Fatalf("expected done after retry succeeded")
	}
}

func TestNoCallOutsideConfirmed(t *testing.T) {
	client := &fakeConfirmClient{}
	c := NewCoordinator(client, nil, nil, zap.NewNop())

	snap := confirmedSnapshot()
	snap.Status = domain.StatusSucceeded
	c.Reconcile(context.Background(), snap)

	snap = confirmedSnapshot()
	snap.PaymentProcessor = ""
	c.Reconcile(context.Background(), snap)

	if client.calls != 0 {
		t.Fatalf("expected no follow-up calls, got %d", client.calls)
	}
}

func TestNoCallWithoutRequiresAction(t *testing.T) {
	client := &fakeConfirmClient{}
	c := NewCoordinator(client, nil, nil, zap.NewNop())

	snap := confirmedSnapshot()
	snap.PaymentProcessorMetadata.IntentStatus = "processing"
	c.Reconcile(context.Background(), snap)

	if client.calls != 0 {
		t.Fatalf("expected no follow-up call while intent is processing, got %d", client.calls)
	}
	if got := c.State(); got != StateIdle {
		t.Fatalf("expected idle while intent is processing, got %s", got)
	}
}
