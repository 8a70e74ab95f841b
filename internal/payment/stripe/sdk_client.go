package stripe

import (
	"context"
	"errors"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"go.uber.org/zap"
)

// sdkClient performs the follow-up step against the live Stripe API. The
// daemon-side analog of the browser SDK's handleNextAction: confirm the
// intent identified by its client secret.
type sdkClient struct {
	api *client.API
	log *zap.Logger
}

// NewSDKFactory returns a Factory building live clients keyed by API key.
func NewSDKFactory(log *zap.Logger) Factory {
	return func(key string) ConfirmClient {
		api := &client.API{}
		api.Init(key, nil)
		return &sdkClient{api: api, log: log.Named("stripe")}
	}
}

func (c *sdkClient) HandleNextAction(ctx context.Context, intentClientSecret string) error {
	// The confirm endpoint is addressed by intent id; the id is embedded in
	// the opaque client secret and the call authenticates with the API key.
	params := &stripeapi.PaymentIntentConfirmParams{}
	params.Context = ctx

	_, err := c.api.PaymentIntents.Confirm(intentIDFromSecret(intentClientSecret), params)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// intentIDFromSecret recovers the intent id from an opaque client secret of
// the form pi_xxx_secret_yyy.
func intentIDFromSecret(clientSecret string) string {
	if idx := strings.Index(clientSecret, "_secret"); idx > 0 {
		return clientSecret[:idx]
	}
	return clientSecret
}

// translateError maps API errors onto the SDK error shape the coordinator
// classifies. Confirming an intent the webhook already settled comes back as
// an invalid_request_error mentioning the succeeded status.
func translateError(err error) error {
	var apiErr *stripeapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Type == stripeapi.ErrorTypeInvalidRequest {
		return &Error{Name: ErrNameIntegration, Message: apiErr.Msg}
	}
	return &Error{Name: string(apiErr.Type), Message: apiErr.Msg}
}
