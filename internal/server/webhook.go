package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/events"
	"go.uber.org/zap"
)

const signatureHeader = "X-Webhook-Signature"

// Webhook event types republished onto the bus.
const (
	eventCheckoutUpdated     = "checkout.updated"
	eventBenefitGrantCreated = "benefit_grant.created"
)

type webhookEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type benefitGrantEvent struct {
	ID         string `json:"id"`
	BenefitID  string `json:"benefit_id"`
	CheckoutID string `json:"checkout_id"`
}

// HandleWebhook verifies the HMAC signature, decodes the envelope and emits
// the typed payload. Unknown event types are acknowledged and dropped so the
// sender does not retry them.
func (s *Server) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	if !s.verifySignature(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	switch envelope.Type {
	case eventCheckoutUpdated:
		var snap domain.Snapshot
		if err := json.Unmarshal(envelope.Data, &snap); err != nil || snap.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}
		s.bus.Emit(events.TopicCheckoutUpdated, events.CheckoutUpdatedPayload{Checkout: snap})
	case eventBenefitGrantCreated:
		var grant benefitGrantEvent
		if err := json.Unmarshal(envelope.Data, &grant); err != nil || grant.CheckoutID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
			return
		}
		s.bus.Emit(events.TopicBenefitGranted, events.BenefitGrantedPayload{
			CheckoutID: grant.CheckoutID,
			BenefitID:  grant.BenefitID,
			GrantID:    grant.ID,
		})
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", envelope.Type))
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (s *Server) verifySignature(body []byte, header string) bool {
	secret := strings.TrimSpace(s.secret)
	if secret == "" {
		// No secret configured: accept everything. Development only.
		return true
	}
	header = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}
