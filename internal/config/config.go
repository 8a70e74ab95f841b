package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Checkout API credentials.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.polar.sh"`
	APIToken   string `env:"API_TOKEN"`

	// ClientSecrets are the checkout attempts this process reconciles.
	ClientSecrets []string `env:"CHECKOUT_CLIENT_SECRETS" envSeparator:","`

	// WebhookSecret signs inbound checkout webhooks (HMAC-SHA256).
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	StripePublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`

	// MaxWaitingTime is the poll interval for the fallback channel.
	MaxWaitingTime time.Duration `env:"MAX_WAITING_TIME" envDefault:"15s"`

	// Disabled seeds sessions without scheduling any reconciliation.
	Disabled bool `env:"RECONCILER_DISABLED"`

	AnalyticsEndpoint string `env:"ANALYTICS_ENDPOINT"`

	// JournalDSN is the sqlite path for the reconciliation journal. Empty
	// disables journaling.
	JournalDSN string `env:"JOURNAL_DSN"`

	TracingEnabled  bool    `env:"TRACING_ENABLED"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT"`
	TracingProtocol string  `env:"TRACING_PROTOCOL" envDefault:"grpc"`
	TracingSampling float64 `env:"TRACING_SAMPLING_RATIO" envDefault:"0.1"`
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Module loads configuration for the fx graph.
var Module = fx.Provide(Load)
