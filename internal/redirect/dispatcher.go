package redirect

import (
	"context"
	"sync"

	"github.com/polarsource/polar-sub007/internal/journal"
	"go.uber.org/zap"
)

// Kind discriminates the two terminal navigations.
type Kind string

const (
	// KindReopen sends the customer back to the checkout's own URL after the
	// session expired or restarted server-side.
	KindReopen Kind = "reopen"
	// KindConfirmed is the terminal navigation after a successful checkout.
	KindConfirmed Kind = "confirmed"
)

// Navigator performs the actual navigation side effect.
type Navigator interface {
	Redirect(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Redirect(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Dispatcher fires at most one terminal navigation per session, no matter
// how many snapshot replacements re-arm it.
type Dispatcher struct {
	nav     Navigator
	journal *journal.Recorder
	log     *zap.Logger

	mu    sync.Mutex
	fired bool
}

func NewDispatcher(nav Navigator, recorder *journal.Recorder, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		nav:     nav,
		journal: recorder,
		log:     log.Named("redirect"),
	}
}

// Dispatch performs the navigation once. Returns false when the latch
// already fired. A navigator failure still consumes the latch: a half-fired
// terminal redirect must not repeat.
func (d *Dispatcher) Dispatch(ctx context.Context, checkoutID string, kind Kind, url string) bool {
	d.mu.Lock()
	if d.fired {
		d.mu.Unlock()
		return false
	}
	d.fired = true
	d.mu.Unlock()

	d.journal.SideEffect(ctx, checkoutID, journal.KindRedirect, map[string]any{
		"kind": string(kind),
		"url":  url,
	})
	if d.nav == nil {
		return true
	}
	if err := d.nav.Redirect(ctx, url); err != nil {
		d.log.Warn("redirect failed",
			zap.String("checkout_id", checkoutID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	return true
}

// Fired reports whether the terminal navigation already happened.
func (d *Dispatcher) Fired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}
