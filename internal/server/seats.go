package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/polarsource/polar-sub007/internal/seat"
)

type submitSeatsRequest struct {
	Seats         int      `json:"seats"`
	CustomerEmail string   `json:"customer_email"`
	Emails        []string `json:"emails"`
}

type submitSeatsResponse struct {
	Sent int           `json:"sent"`
	Rows []seat.Invite `json:"rows"`
}

// HandleSubmitSeats builds an invite list for a seat-based checkout and
// submits it. Validation failures return the per-row errors without a single
// assignment call having been made.
func (s *Server) HandleSubmitSeats(c *gin.Context) {
	checkoutID := strings.TrimSpace(c.Param("id"))

	var req submitSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.Seats <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_seat_count"})
		return
	}

	list := seat.NewInviteList(req.Seats, req.CustomerEmail, s.genID)
	if err := fillInvites(list, req.Emails); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "rows": list.Rows()})
		return
	}

	sent, err := s.seats.Submit(c.Request.Context(), checkoutID, list)
	switch {
	case errors.Is(err, seat.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, submitSeatsResponse{Sent: 0, Rows: list.Rows()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, submitSeatsResponse{Sent: sent, Rows: list.Rows()})
	}
}

// fillInvites places the requested emails into the list, reusing seeded blank
// rows before growing it.
func fillInvites(list *seat.InviteList, emails []string) error {
	blanks := make([]seat.Invite, 0, 2)
	for _, row := range list.Rows() {
		if !row.Sent && strings.TrimSpace(row.Value) == "" {
			blanks = append(blanks, row)
		}
	}
	for _, email := range emails {
		if len(blanks) > 0 {
			rowID := blanks[0].ID
			blanks = blanks[1:]
			if err := list.SetValue(rowID, email); err != nil {
				return err
			}
			continue
		}
		rowID, err := list.Add()
		if err != nil {
			return err
		}
		if err := list.SetValue(rowID, email); err != nil {
			return err
		}
	}
	return nil
}
