package checkout

import (
	"context"
	"sync"

	"github.com/polarsource/polar-sub007/internal/analytics"
	"github.com/polarsource/polar-sub007/internal/benefit"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/checkout/reconciler"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/journal"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/payment/confirm"
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"github.com/polarsource/polar-sub007/internal/redirect"
	"go.uber.org/zap"
)

// Supervisor runs one reconciliation session per configured checkout. Every
// session gets its own coordinator, waiter and dispatcher: their latches are
// per-checkout state and must never be shared.
type Supervisor struct {
	cfg       config.Config
	log       *zap.Logger
	api       domain.API
	grants    domain.GrantsAPI
	bus       events.Bus
	registry  *stripe.Registry
	journal   *journal.Recorder
	sink      analytics.Sink
	metrics   *metrics.ReconcilerMetrics
	navigator redirect.Navigator

	mu    sync.Mutex
	stops []func()
}

type SupervisorDeps struct {
	Config    config.Config
	Log       *zap.Logger
	API       domain.API
	Grants    domain.GrantsAPI
	Bus       events.Bus
	Registry  *stripe.Registry
	Journal   *journal.Recorder
	Sink      analytics.Sink
	Metrics   *metrics.ReconcilerMetrics
	Navigator redirect.Navigator
}

func NewSupervisor(deps SupervisorDeps) *Supervisor {
	nav := deps.Navigator
	if nav == nil {
		nav = logNavigator{log: deps.Log.Named("redirect")}
	}
	return &Supervisor{
		cfg:       deps.Config,
		log:       deps.Log.Named("checkout.supervisor"),
		api:       deps.API,
		grants:    deps.Grants,
		bus:       deps.Bus,
		registry:  deps.Registry,
		journal:   deps.Journal,
		sink:      deps.Sink,
		metrics:   deps.Metrics,
		navigator: nav,
	}
}

// NewSession builds a fully wired session for one client secret.
func (s *Supervisor) NewSession(clientSecret string) *reconciler.Session {
	sessionCfg := reconciler.Config{
		MaxWaitingTime: s.cfg.MaxWaitingTime,
		Disabled:       s.cfg.Disabled,
	}
	return reconciler.NewSession(clientSecret, reconciler.Deps{
		Config:    sessionCfg,
		Log:       s.log,
		API:       s.api,
		Bus:       s.bus,
		Confirm:   confirm.NewCoordinator(s.registry.Client(s.cfg.StripePublishableKey), s.journal, s.metrics, s.log),
		Waiter:    benefit.NewWaiter(s.grants, s.bus, s.cfg.MaxWaitingTime, s.metrics, s.log),
		Redirects: redirect.NewDispatcher(s.navigator, s.journal, s.log),
		Sink:      s.sink,
		Journal:   s.journal,
		Metrics:   s.metrics,
	})
}

// Start launches a session per configured client secret. A session that fails
// its initial fetch is logged and skipped; the others keep running.
func (s *Supervisor) Start(ctx context.Context) error {
	for _, clientSecret := range s.cfg.ClientSecrets {
		session := s.NewSession(clientSecret)
		stop, err := session.Start(ctx)
		if err != nil {
			s.log.Warn("session start failed", zap.Error(err))
			continue
		}
		s.mu.Lock()
		s.stops = append(s.stops, stop)
		s.mu.Unlock()
	}
	return nil
}

// Stop tears every running session down.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

// logNavigator is the headless navigation target: the daemon cannot steer a
// browser, so terminal navigations surface as structured log lines for the
// embedding surface to act on.
type logNavigator struct {
	log *zap.Logger
}

func (n logNavigator) Redirect(ctx context.Context, url string) error {
	n.log.Info("redirect requested", zap.String("url", url))
	return nil
}
