package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"go.uber.org/zap"
)

func TestGetDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkouts/client/cs_123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token_1" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.Snapshot{
			ID:           "co_1",
			ClientSecret: "cs_123",
			Status:       domain.StatusConfirmed,
			PaymentProcessorMetadata: domain.ProcessorMetadata{
				IntentStatus: domain.IntentStatusRequiresAction,
			},
		})
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, Token: "token_1"}, zap.NewNop())
	snap, err := c.Get(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.ID != "co_1" || snap.Status != domain.StatusConfirmed {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.PaymentProcessorMetadata.IntentStatus != domain.IntentStatusRequiresAction {
		t.Fatalf("expected processor metadata decoded")
	}
}

func TestGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL}, zap.NewNop())
	_, err := c.Get(context.Background(), "cs_missing")
	if !errors.Is(err, domain.ErrCheckoutNotFound) {
		t.Fatalf("expected checkout not found, got %v", err)
	}
}

func TestGetDecodesWithoutContentTypeHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some proxies strip the content type; the body is still JSON.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(`{"id":"co_1","client_secret":"cs_123","status":"open"}`))
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL}, zap.NewNop())
	snap, err := c.Get(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.ID != "co_1" || snap.Status != domain.StatusOpen {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestGetRejectsEmptySnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL}, zap.NewNop())
	_, err := c.Get(context.Background(), "cs_123")
	if !errors.Is(err, domain.ErrRequestFailed) {
		t.Fatalf("expected request failed for empty snapshot, got %v", err)
	}
}

func TestGetRequiresClientSecret(t *testing.T) {
	c := New(Options{BaseURL: "http://unused.test"}, zap.NewNop())
	_, err := c.Get(context.Background(), " ")
	if !errors.Is(err, domain.ErrMissingClientSecret) {
		t.Fatalf("expected missing client secret, got %v", err)
	}
}

func TestListGrants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("checkout_id"); got != "co_1" {
			t.Fatalf("expected checkout_id filter, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Fatalf("expected limit 2, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.GrantPage{
			Items: []domain.BenefitGrant{
				{ID: "grant_1", BenefitID: "ben_1", CheckoutID: "co_1"},
			},
			TotalCount: 1,
		})
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL}, zap.NewNop())
	page, err := c.ListGrants(context.Background(), domain.ListGrantsParams{CheckoutID: "co_1", Limit: 2})
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "grant_1" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestAssignSeatSurfacesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req assignSeatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Email == "taken@x.com" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL}, zap.NewNop())
	if err := c.AssignSeat(context.Background(), domain.AssignSeatParams{CheckoutID: "co_1", Email: "free@x.com"}); err != nil {
		t.Fatalf("assign seat: %v", err)
	}
	err := c.AssignSeat(context.Background(), domain.AssignSeatParams{CheckoutID: "co_1", Email: "taken@x.com"})
	if !errors.Is(err, domain.ErrRequestFailed) {
		t.Fatalf("expected request failed, got %v", err)
	}
}
