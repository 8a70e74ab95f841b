package checkout

import (
	"context"

	"github.com/polarsource/polar-sub007/internal/analytics"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/journal"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	API      domain.API
	Grants   domain.GrantsAPI
	Bus      events.Bus
	Registry *stripe.Registry
	Journal  *journal.Recorder          `optional:"true"`
	Sink     analytics.Sink             `optional:"true"`
	Metrics  *metrics.ReconcilerMetrics `optional:"true"`
}

func newSupervisor(p Params) *Supervisor {
	return NewSupervisor(SupervisorDeps{
		Config:   p.Config,
		Log:      p.Log,
		API:      p.API,
		Grants:   p.Grants,
		Bus:      p.Bus,
		Registry: p.Registry,
		Journal:  p.Journal,
		Sink:     p.Sink,
		Metrics:  p.Metrics,
	})
}

var Module = fx.Module("checkout",
	fx.Provide(newSupervisor),
	fx.Invoke(runSupervisor),
)

func runSupervisor(lc fx.Lifecycle, supervisor *Supervisor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Sessions outlive the start hook; they stop via OnStop.
			return supervisor.Start(context.WithoutCancel(ctx))
		},
		OnStop: func(ctx context.Context) error {
			supervisor.Stop()
			return nil
		},
	})
}
