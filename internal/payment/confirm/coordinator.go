package confirm

import (
	"context"
	"sync"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/journal"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"go.uber.org/zap"
)

// State is the coordinator latch. Modeling the two guard booleans as a
// tagged state makes the at-most-once contract explicit: the follow-up call
// runs only on the Idle -> InFlight edge.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Coordinator drives the processor's follow-up step at most once per
// checkout. Reconcile is re-invoked on every snapshot refresh while the
// checkout stays confirmed; the latch makes repeated invocation safe.
type Coordinator struct {
	client  stripe.ConfirmClient
	journal *journal.Recorder
	metrics *metrics.ReconcilerMetrics
	log     *zap.Logger

	mu    sync.Mutex
	state State
}

func NewCoordinator(client stripe.ConfirmClient, recorder *journal.Recorder, m *metrics.ReconcilerMetrics, log *zap.Logger) *Coordinator {
	return &Coordinator{
		client:  client,
		journal: recorder,
		metrics: m,
		log:     log.Named("payment.confirm"),
	}
}

// Reconcile inspects the snapshot and performs the follow-up call when the
// intent still requires action. Errors never escape: an unclassified failure
// returns the latch to Idle so the next confirmed refresh can retry.
func (c *Coordinator) Reconcile(ctx context.Context, snap domain.Snapshot) {
	if !snap.RequiresConfirmation() {
		return
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateInFlight
	c.mu.Unlock()

	next := StateIdle
	defer func() {
		c.mu.Lock()
		c.state = next
		c.mu.Unlock()
	}()

	metadata := snap.PaymentProcessorMetadata
	if metadata.IntentStatus != domain.IntentStatusRequiresAction {
		return
	}

	err := c.client.HandleNextAction(ctx, metadata.IntentClientSecret)
	switch {
	case err == nil:
		next = StateDone
		c.metrics.ObserveConfirmAttempt("confirmed")
		c.journal.SideEffect(ctx, snap.ID, journal.KindPaymentConfirm, map[string]any{
			"outcome": "confirmed",
		})
	case stripe.IsAlreadyConfirmed(err):
		// The server-side webhook confirmation landed before our call
		// resolved. Same terminal outcome.
		next = StateDone
		c.metrics.ObserveConfirmAttempt("already_confirmed")
		c.journal.SideEffect(ctx, snap.ID, journal.KindPaymentConfirm, map[string]any{
			"outcome": "already_confirmed",
		})
	default:
		c.metrics.ObserveConfirmAttempt("failed")
		c.log.Warn("payment follow-up failed",
			zap.String("checkout_id", snap.ID),
			zap.Error(err),
		)
	}
}

// State returns the current latch position.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done reports whether the follow-up step completed.
func (c *Coordinator) Done() bool {
	return c.State() == StateDone
}
