package domain

import (
	"context"
	"errors"
)

var (
	ErrMissingClientSecret = errors.New("missing_client_secret")
	ErrCheckoutNotFound    = errors.New("checkout_not_found")
	ErrInvalidCheckoutID   = errors.New("invalid_checkout_id")
	ErrRequestFailed       = errors.New("request_failed")
)

// API retrieves the authoritative checkout snapshot.
type API interface {
	Get(ctx context.Context, clientSecret string) (*Snapshot, error)
}

// ListGrantsParams filters a benefit grant listing.
type ListGrantsParams struct {
	CheckoutID string
	Limit      int
}

// GrantPage is one page of benefit grants.
type GrantPage struct {
	Items      []BenefitGrant `json:"items"`
	TotalCount int            `json:"total_count"`
}

// GrantsAPI lists benefit grants produced by downstream provisioning.
type GrantsAPI interface {
	ListGrants(ctx context.Context, params ListGrantsParams) (*GrantPage, error)
}

// AssignSeatParams identifies one seat assignment request.
type AssignSeatParams struct {
	CheckoutID string
	Email      string
}

// SeatsAPI submits seat assignment requests.
type SeatsAPI interface {
	AssignSeat(ctx context.Context, params AssignSeatParams) error
}
