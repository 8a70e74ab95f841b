package context

import "context"

type contextKey string

const (
	requestIDKey  contextKey = "observability_request_id"
	checkoutIDKey contextKey = "observability_checkout_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithCheckoutID(ctx context.Context, checkoutID string) context.Context {
	if ctx == nil || checkoutID == "" {
		return ctx
	}
	return context.WithValue(ctx, checkoutIDKey, checkoutID)
}

func CheckoutIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(checkoutIDKey).(string)
	return value
}
