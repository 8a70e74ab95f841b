package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/seat"
	"go.uber.org/zap"
)

type fakeSeatsAPI struct {
	assigned []string
	fail     map[string]bool
}

func (f *fakeSeatsAPI) AssignSeat(ctx context.Context, params domain.AssignSeatParams) error {
	if f.fail[params.Email] {
		return domain.ErrRequestFailed
	}
	f.assigned = append(f.assigned, params.Email)
	return nil
}

func newSeatServer(t *testing.T, api *fakeSeatsAPI) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	submitter := seat.NewSubmitter(api, nil, zap.NewNop())
	return NewServer(config.Config{}, events.NewBus(), submitter, node, zap.NewNop())
}

func postSeats(t *testing.T, s *Server, checkoutID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/v1/checkouts/:id/seats", s.HandleSubmitSeats)

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/checkouts/"+checkoutID+"/seats", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitSeatsAssignsInOrder(t *testing.T) {
	api := &fakeSeatsAPI{}
	s := newSeatServer(t, api)

	w := postSeats(t, s, "co_1", submitSeatsRequest{
		Seats:         3,
		CustomerEmail: "owner@x.com",
		Emails:        []string{"a@x.com", "b@x.com"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := []string{"owner@x.com", "a@x.com", "b@x.com"}
	if len(api.assigned) != len(want) {
		t.Fatalf("expected %d assignments, got %v", len(want), api.assigned)
	}
	for i, email := range want {
		if api.assigned[i] != email {
			t.Fatalf("expected assignment order %v, got %v", want, api.assigned)
		}
	}
}

func TestSubmitSeatsValidationBlocksBatch(t *testing.T) {
	api := &fakeSeatsAPI{}
	s := newSeatServer(t, api)

	w := postSeats(t, s, "co_1", submitSeatsRequest{
		Seats:  2,
		Emails: []string{"good@x.com", "not-an-email"},
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if len(api.assigned) != 0 {
		t.Fatalf("expected no assignment calls on validation failure, got %v", api.assigned)
	}
}

func TestSubmitSeatsRespectsBudget(t *testing.T) {
	api := &fakeSeatsAPI{}
	s := newSeatServer(t, api)

	w := postSeats(t, s, "co_1", submitSeatsRequest{
		Seats:  2,
		Emails: []string{"a@x.com", "b@x.com", "c@x.com"},
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when exceeding seat budget, got %d", w.Code)
	}
}

func TestSubmitSeatsPartialFailure(t *testing.T) {
	api := &fakeSeatsAPI{fail: map[string]bool{"b@x.com": true}}
	s := newSeatServer(t, api)

	w := postSeats(t, s, "co_1", submitSeatsRequest{
		Seats:  3,
		Emails: []string{"a@x.com", "b@x.com", "c@x.com"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp submitSeatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sent != 2 {
		t.Fatalf("expected 2 sent, got %d", resp.Sent)
	}
	failed := 0
	for _, row := range resp.Rows {
		if !row.Sent && row.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failed row, got %d", failed)
	}
}
