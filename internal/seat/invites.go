package seat

import (
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrSeatBudgetExhausted = errors.New("seat_budget_exhausted")
	ErrInviteNotFound      = errors.New("invite_not_found")
	ErrInviteAlreadySent   = errors.New("invite_already_sent")
	ErrLastInvite          = errors.New("last_invite_row")
)

// Invite is one local seat invitation row. Created empty or prefilled from
// the customer's email, mutated by user input or submission outcome, and
// never deleted once sent.
type Invite struct {
	ID    snowflake.ID `json:"id"`
	Value string       `json:"value"`
	Error string       `json:"error,omitempty"`
	Sent  bool         `json:"sent"`
}

// InviteList holds the ordered invite rows for one seat-based checkout,
// capped by the seat budget.
type InviteList struct {
	genID *snowflake.Node

	mu    sync.Mutex
	seats int
	rows  []Invite
}

// NewInviteList seeds the list with the customer's own email when known plus
// one blank row, within the seat budget.
func NewInviteList(seats int, customerEmail string, genID *snowflake.Node) *InviteList {
	l := &InviteList{genID: genID, seats: seats}
	if email := strings.TrimSpace(customerEmail); email != "" && l.canAdd() {
		l.rows = append(l.rows, Invite{ID: genID.Generate(), Value: email})
	}
	if l.canAdd() {
		l.rows = append(l.rows, Invite{ID: genID.Generate()})
	}
	return l
}

func (l *InviteList) canAdd() bool {
	// Unsent rows may not exceed the remaining budget, which is the same as
	// capping total rows at the seat count since sent rows stay in the list.
	return len(l.rows) < l.seats
}

// Add appends a blank row while seat budget remains.
func (l *InviteList) Add() (snowflake.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.canAdd() {
		return 0, ErrSeatBudgetExhausted
	}
	row := Invite{ID: l.genID.Generate()}
	l.rows = append(l.rows, row)
	return row.ID, nil
}

// Remove deletes an unsent row. Sent rows and the last remaining row stay.
func (l *InviteList) Remove(id snowflake.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, row := range l.rows {
		if row.ID != id {
			continue
		}
		if len(l.rows) <= 1 {
			return ErrLastInvite
		}
		if row.Sent {
			return ErrInviteAlreadySent
		}
		l.rows = append(l.rows[:i], l.rows[i+1:]...)
		return nil
	}
	return ErrInviteNotFound
}

// SetValue updates a row from user input and clears any stale error.
func (l *InviteList) SetValue(id snowflake.ID, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].ID != id {
			continue
		}
		if l.rows[i].Sent {
			return ErrInviteAlreadySent
		}
		l.rows[i].Value = value
		l.rows[i].Error = ""
		return nil
	}
	return ErrInviteNotFound
}

// Rows returns a copy of the ordered rows.
func (l *InviteList) Rows() []Invite {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := make([]Invite, len(l.rows))
	copy(rows, l.rows)
	return rows
}

// SentCount returns how many seats have been consumed.
func (l *InviteList) SentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, row := range l.rows {
		if row.Sent {
			count++
		}
	}
	return count
}

// setOutcome records a submission result on one row.
func (l *InviteList) setOutcome(id snowflake.ID, sent bool, errMessage string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].ID != id {
			continue
		}
		l.rows[i].Sent = sent
		l.rows[i].Error = errMessage
		return
	}
}

// setError records a validation error on one row.
func (l *InviteList) setError(id snowflake.ID, errMessage string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rows {
		if l.rows[i].ID != id {
			continue
		}
		l.rows[i].Error = errMessage
		return
	}
}
