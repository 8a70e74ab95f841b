package domain

// Status is the server-authoritative lifecycle state of a checkout attempt.
type Status string

const (
	StatusOpen      Status = "open"
	StatusConfirmed Status = "confirmed"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further checkout-level status changes are
// expected. Benefit provisioning continues past a succeeded status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

// AmountType describes how a price charges.
type AmountType string

const (
	AmountTypeFixed     AmountType = "fixed"
	AmountTypeCustom    AmountType = "custom"
	AmountTypeFree      AmountType = "free"
	AmountTypeSeatBased AmountType = "seat_based"
)

// Price is one price attached to the purchased product.
type Price struct {
	ID         string     `json:"id"`
	AmountType AmountType `json:"amount_type"`
	Amount     int64      `json:"amount,omitempty"`
	Currency   string     `json:"currency,omitempty"`
}

// Benefit is one entitlement the product grants once provisioned.
type Benefit struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Product is the purchased product as embedded in a checkout snapshot.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Benefits []Benefit `json:"benefits"`
	Prices   []Price   `json:"prices"`
}

// SeatBased reports whether any price on the product charges per seat.
func (p Product) SeatBased() bool {
	for _, price := range p.Prices {
		if price.AmountType == AmountTypeSeatBased {
			return true
		}
	}
	return false
}

// Payment processors that require a client-side follow-up step.
const ProcessorStripe = "stripe"

// IntentStatusRequiresAction is the processor intent status that demands the
// out-of-band confirmation call.
const IntentStatusRequiresAction = "requires_action"

// ProcessorMetadata carries opaque processor-specific confirmation state.
type ProcessorMetadata struct {
	IntentStatus       string `json:"intent_status,omitempty"`
	IntentClientSecret string `json:"intent_client_secret,omitempty"`
}

// Snapshot is the complete server-issued view of one checkout attempt.
// Snapshots are always replaced wholesale, never field-merged; every channel
// (initial load, push, poll) is treated as fully authoritative for the
// instant it delivered.
type Snapshot struct {
	ID                       string            `json:"id"`
	ClientSecret             string            `json:"client_secret"`
	URL                      string            `json:"url"`
	SuccessURL               string            `json:"success_url,omitempty"`
	Status                   Status            `json:"status"`
	PaymentProcessor         string            `json:"payment_processor,omitempty"`
	PaymentProcessorMetadata ProcessorMetadata `json:"payment_processor_metadata"`
	Product                  Product           `json:"product"`
	Seats                    *int              `json:"seats,omitempty"`
	CustomerEmail            string            `json:"customer_email,omitempty"`
}

// SeatMode reports whether the checkout provisions per invited seat rather
// than once per checkout.
func (s Snapshot) SeatMode() bool {
	return s.Seats != nil && s.Product.SeatBased()
}

// ExpectedGrants is the number of benefit grants a non-seat checkout waits
// for after payment settles.
func (s Snapshot) ExpectedGrants() int {
	return len(s.Product.Benefits)
}

// RequiresConfirmation reports whether the payment-confirmation coordinator
// applies to this snapshot.
func (s Snapshot) RequiresConfirmation() bool {
	return s.Status == StatusConfirmed && s.PaymentProcessor == ProcessorStripe
}

// BenefitGrant is produced server-side once provisioning completes for one
// benefit.
type BenefitGrant struct {
	ID         string `json:"id"`
	BenefitID  string `json:"benefit_id"`
	CheckoutID string `json:"checkout_id"`
}
