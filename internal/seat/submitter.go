package seat

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/journal"
	"go.uber.org/zap"
)

var ErrValidation = errors.New("invite_validation_failed")

// Row-level messages surfaced next to the offending input.
const (
	errRequired      = "Email is required"
	errInvalidFormat = "Invalid email format"
	errAssignFailed  = "Could not assign seat"
)

// Submitter submits invite rows sequentially, in list order, with per-row
// isolation: one failed assignment marks its row and the batch moves on.
// Sequential submission bounds load on the assignment endpoint and keeps the
// order of seat consumption deterministic.
type Submitter struct {
	api      domain.SeatsAPI
	validate *validator.Validate
	journal  *journal.Recorder
	log      *zap.Logger
}

func NewSubmitter(api domain.SeatsAPI, recorder *journal.Recorder, log *zap.Logger) *Submitter {
	return &Submitter{
		api:      api,
		validate: validator.New(),
		journal:  recorder,
		log:      log.Named("seat.submitter"),
	}
}

// Submit validates every unsent row first; any validation failure aborts the
// whole batch before a single network call. It then assigns seats one row at
// a time, skipping rows already sent. Returns how many rows were sent in
// this pass. Partial success is expected and visible per row.
func (s *Submitter) Submit(ctx context.Context, checkoutID string, list *InviteList) (int, error) {
	if strings.TrimSpace(checkoutID) == "" {
		return 0, domain.ErrInvalidCheckoutID
	}

	invalid := false
	for _, row := range list.Rows() {
		if row.Sent {
			continue
		}
		if message := s.validateEmail(row.Value); message != "" {
			list.setError(row.ID, message)
			invalid = true
		}
	}
	if invalid {
		return 0, ErrValidation
	}

	sent := 0
	for _, row := range list.Rows() {
		if row.Sent {
			continue
		}
		err := s.api.AssignSeat(ctx, domain.AssignSeatParams{
			CheckoutID: checkoutID,
			Email:      strings.TrimSpace(row.Value),
		})
		if err != nil {
			s.log.Warn("seat assignment failed",
				zap.String("checkout_id", checkoutID),
				zap.Error(err),
			)
			list.setOutcome(row.ID, false, errAssignFailed)
			continue
		}
		list.setOutcome(row.ID, true, "")
		sent++
		s.journal.SideEffect(ctx, checkoutID, journal.KindSeatAssignment, map[string]any{
			"email": strings.TrimSpace(row.Value),
		})
	}
	return sent, nil
}

func (s *Submitter) validateEmail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return errRequired
	}
	if err := s.validate.Var(value, "email"); err != nil {
		return errInvalidFormat
	}
	return ""
}
