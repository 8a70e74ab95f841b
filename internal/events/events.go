package events

import "github.com/polarsource/polar-sub007/internal/checkout/domain"

// Push event topics consumed by the reconciliation engine.
const (
	TopicCheckoutUpdated = "checkout.updated"
	TopicBenefitGranted  = "benefit.granted"
)

// CheckoutUpdatedPayload carries the full refreshed snapshot. The snapshot is
// authoritative and replaces local state wholesale.
type CheckoutUpdatedPayload struct {
	Checkout domain.Snapshot `json:"checkout"`
}

// BenefitGrantedPayload announces that one benefit grant materialized. The
// waiter refetches the grant list on receipt rather than trusting a count.
type BenefitGrantedPayload struct {
	CheckoutID string `json:"checkout_id"`
	BenefitID  string `json:"benefit_id"`
	GrantID    string `json:"grant_id"`
}
