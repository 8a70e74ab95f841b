package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"go.uber.org/zap"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestServer(t *testing.T, secret string) (*Server, events.Bus) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bus := events.NewBus()
	s := NewServer(config.Config{WebhookSecret: secret}, bus, nil, nil, zap.NewNop())
	return s, bus
}

func postWebhook(t *testing.T, s *Server, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/v1/webhooks/checkout", s.HandleWebhook)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/checkout", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookEmitsCheckoutUpdated(t *testing.T) {
	s, bus := newTestServer(t, "whsec_1")

	var mu sync.Mutex
	var got []domain.Snapshot
	if err := bus.On(events.TopicCheckoutUpdated, func(payload events.CheckoutUpdatedPayload) {
		mu.Lock()
		got = append(got, payload.Checkout)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	body := []byte(`{"type":"checkout.updated","data":{"id":"co_1","status":"succeeded"}}`)
	w := postWebhook(t, s, body, sign("whsec_1", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one emitted snapshot, got %d", n)
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if got[0].ID != "co_1" || got[0].Status != domain.StatusSucceeded {
		t.Fatalf("unexpected snapshot %+v", got[0])
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, bus := newTestServer(t, "whsec_1")

	emitted := 0
	if err := bus.On(events.TopicCheckoutUpdated, func(payload events.CheckoutUpdatedPayload) {
		emitted++
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	body := []byte(`{"type":"checkout.updated","data":{"id":"co_1","status":"open"}}`)
	w := postWebhook(t, s, body, sign("wrong_secret", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if emitted != 0 {
		t.Fatalf("expected no emission on bad signature")
	}
}

func TestWebhookEmitsBenefitGranted(t *testing.T) {
	s, bus := newTestServer(t, "")

	done := make(chan events.BenefitGrantedPayload, 1)
	if err := bus.On(events.TopicBenefitGranted, func(payload events.BenefitGrantedPayload) {
		done <- payload
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	body := []byte(`{"type":"benefit_grant.created","data":{"id":"grant_1","benefit_id":"ben_1","checkout_id":"co_1"}}`)
	w := postWebhook(t, s, body, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	select {
	case payload := <-done:
		if payload.CheckoutID != "co_1" || payload.GrantID != "grant_1" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected benefit granted emission")
	}
}

func TestWebhookIgnoresUnknownType(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := []byte(`{"type":"order.created","data":{}}`)
	w := postWebhook(t, s, body, "")

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for unknown type, got %d", w.Code)
	}
}

func TestWebhookAcceptsPrefixedSignature(t *testing.T) {
	s, _ := newTestServer(t, "whsec_1")

	body := []byte(`{"type":"order.created","data":{}}`)
	w := postWebhook(t, s, body, "sha256="+sign("whsec_1", body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected signature with scheme prefix accepted, got %d", w.Code)
	}
}
