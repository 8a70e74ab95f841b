package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/polarsource/polar-sub007/internal/analytics"
	"github.com/polarsource/polar-sub007/internal/apiclient"
	"github.com/polarsource/polar-sub007/internal/checkout"
	"github.com/polarsource/polar-sub007/internal/checkout/domain"
	"github.com/polarsource/polar-sub007/internal/clock"
	"github.com/polarsource/polar-sub007/internal/config"
	"github.com/polarsource/polar-sub007/internal/events"
	"github.com/polarsource/polar-sub007/internal/journal"
	"github.com/polarsource/polar-sub007/internal/observability/logger"
	"github.com/polarsource/polar-sub007/internal/observability/metrics"
	"github.com/polarsource/polar-sub007/internal/observability/tracing"
	"github.com/polarsource/polar-sub007/internal/payment"
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"github.com/polarsource/polar-sub007/internal/seat"
	"github.com/polarsource/polar-sub007/internal/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		logger.Module,
		config.Module,
		clock.Module,
		events.Module,
		payment.Module,
		journal.Module,

		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),

		fx.Provide(func(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
			if cfg.JournalDSN == "" {
				return nil, nil
			}
			db, err := gorm.Open(sqlite.Open(cfg.JournalDSN), &gorm.Config{})
			if err != nil {
				return nil, fmt.Errorf("open journal db: %w", err)
			}
			if err := db.AutoMigrate(&journal.Record{}); err != nil {
				return nil, fmt.Errorf("migrate journal: %w", err)
			}
			return db, nil
		}),

		fx.Provide(stripe.NewSDKFactory),

		fx.Provide(
			fx.Annotate(
				func(cfg config.Config, log *zap.Logger) *apiclient.Client {
					return apiclient.New(apiclient.Options{
						BaseURL: cfg.APIBaseURL,
						Token:   cfg.APIToken,
					}, log)
				},
				fx.As(new(domain.API)),
				fx.As(new(domain.GrantsAPI)),
				fx.As(new(domain.SeatsAPI)),
			),
		),

		fx.Provide(func(cfg config.Config, log *zap.Logger) analytics.Sink {
			if cfg.AnalyticsEndpoint == "" {
				return analytics.NoopSink{}
			}
			return analytics.NewHTTPSink(cfg.AnalyticsEndpoint, log)
		}),

		fx.Provide(func(cfg config.Config) metrics.Config {
			return metrics.Config{ServiceName: "checkoutd", Environment: cfg.Environment}
		}),
		fx.Provide(metrics.ReconcilerWithConfig),
		fx.Provide(func() metric.MeterProvider {
			return otel.GetMeterProvider()
		}),
		fx.Provide(metrics.NewHTTPMetrics),

		fx.Provide(func(cfg config.Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.TracingEnabled,
				ServiceName:      "checkoutd",
				ServiceVersion:   version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.TracingEndpoint,
				ExporterProtocol: cfg.TracingProtocol,
				SamplingRatio:    cfg.TracingSampling,
			}
		}),
		fx.Invoke(tracing.NewProvider),

		fx.Provide(seat.NewSubmitter),

		checkout.Module,
		server.Module,
	)
	app.Run()
}
