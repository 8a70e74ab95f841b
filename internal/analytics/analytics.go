package analytics

import (
	"context"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EventCheckoutCompleted is captured at most once per checkout completion.
const EventCheckoutCompleted = "checkout_completed"

// Sink receives fire-and-forget product analytics. Implementations never
// return errors to callers; a lost capture is acceptable.
type Sink interface {
	Capture(ctx context.Context, event string, properties map[string]any)
}

// NoopSink drops every capture.
type NoopSink struct{}

func (NoopSink) Capture(ctx context.Context, event string, properties map[string]any) {}

// HTTPSink posts captures to an ingestion endpoint.
type HTTPSink struct {
	http *resty.Client
	log  *zap.Logger
}

func NewHTTPSink(endpoint string, log *zap.Logger) *HTTPSink {
	client := resty.New().
		SetBaseURL(endpoint).
		SetRetryCount(0)
	return &HTTPSink{http: client, log: log.Named("analytics")}
}

type captureRequest struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (s *HTTPSink) Capture(ctx context.Context, event string, properties map[string]any) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(captureRequest{Event: event, Properties: properties}).
		Post("/capture")
	if err != nil {
		s.log.Warn("analytics capture failed", zap.String("event", event), zap.Error(err))
		return
	}
	if resp.IsError() {
		s.log.Warn("analytics capture rejected",
			zap.String("event", event),
			zap.Int("status", resp.StatusCode()),
		)
	}
}
