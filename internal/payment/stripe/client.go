package stripe

import (
	"context"
	"errors"
	"strings"
)

// ConfirmClient drives the processor's client-side follow-up step for a
// payment intent that requires further action.
type ConfirmClient interface {
	HandleNextAction(ctx context.Context, intentClientSecret string) error
}

// ErrNameIntegration is the error name the SDK uses for misuse-classified
// failures. One such failure is raising the next-action flow for an intent
// the server already confirmed via webhook.
const ErrNameIntegration = "IntegrationError"

// Error mirrors the SDK error shape: a name discriminator plus a message.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// IsAlreadyConfirmed reports whether err is the classified race where the
// server-side confirmation landed before the client's follow-up call. The
// caller treats it as success.
func IsAlreadyConfirmed(err error) bool {
	var sdkErr *Error
	if !errors.As(err, &sdkErr) {
		return false
	}
	if sdkErr.Name != ErrNameIntegration {
		return false
	}
	return strings.Contains(strings.ToLower(sdkErr.Message), "succeeded")
}
