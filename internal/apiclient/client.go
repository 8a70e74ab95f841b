package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/observability/tracing"
	"go.uber.org/zap"
)

// Client talks to the checkout REST API. It implements domain.API,
// domain.GrantsAPI and domain.SeatsAPI.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// Options configures the REST client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(opts Options, log *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.NewWithClient(tracing.WrapHTTPClient(&http.Client{})).
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(opts.Token); token != "" {
		client.SetAuthToken(token)
	}
	return &Client{http: client, log: log.Named("apiclient")}
}

// Get retrieves the authoritative snapshot by its opaque client secret.
func (c *Client) Get(ctx context.Context, clientSecret string) (*domain.Snapshot, error) {
	if strings.TrimSpace(clientSecret) == "" {
		return nil, domain.ErrMissingClientSecret
	}

	var snapshot domain.Snapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&snapshot).
		ForceContentType("application/json").
		Get("/v1/checkouts/client/" + clientSecret)
	if err != nil {
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrCheckoutNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get checkout: status %d: %w", resp.StatusCode(), domain.ErrRequestFailed)
	}
	// A snapshot without an id would feed the state machine an empty
	// status; treat it as a failed fetch rather than a valid refresh.
	if strings.TrimSpace(snapshot.ID) == "" {
		return nil, fmt.Errorf("get checkout: empty snapshot: %w", domain.ErrRequestFailed)
	}
	return &snapshot, nil
}

// ListGrants pages through benefit grants for one checkout.
func (c *Client) ListGrants(ctx context.Context, params domain.ListGrantsParams) (*domain.GrantPage, error) {
	if strings.TrimSpace(params.CheckoutID) == "" {
		return nil, domain.ErrInvalidCheckoutID
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	var page domain.GrantPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("checkout_id", params.CheckoutID).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&page).
		ForceContentType("application/json").
		Get("/v1/benefit-grants")
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list grants: status %d: %w", resp.StatusCode(), domain.ErrRequestFailed)
	}
	return &page, nil
}

type assignSeatRequest struct {
	CheckoutID string `json:"checkout_id"`
	Email      string `json:"email"`
}

// AssignSeat submits one seat assignment.
func (c *Client) AssignSeat(ctx context.Context, params domain.AssignSeatParams) error {
	if strings.TrimSpace(params.CheckoutID) == "" {
		return domain.ErrInvalidCheckoutID
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(assignSeatRequest{CheckoutID: params.CheckoutID, Email: params.Email}).
		Post("/v1/customer-seats")
	if err != nil {
		return fmt.Errorf("assign seat: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("assign seat: status %d: %w", resp.StatusCode(), domain.ErrRequestFailed)
	}
	return nil
}
