package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// ReconcilerMetrics tracks the checkout reconciliation loops.
type ReconcilerMetrics struct {
	statusTransitions *prometheus.CounterVec
	pollTicks         *prometheus.CounterVec
	confirmAttempts   *prometheus.CounterVec
	terminalRedirects *prometheus.CounterVec
	grantsObserved    prometheus.Gauge
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the process-wide reconciler metrics.
func Reconciler() *ReconcilerMetrics {
	return ReconcilerWithConfig(Config{})
}

func ReconcilerWithConfig(cfg Config) *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcilerMetrics
}

func ResetReconcilerMetricsForTest() {
	reconcilerMetricsOnce = sync.Once{}
	reconcilerMetrics = nil
}

func newReconcilerMetrics(registerer prometheus.Registerer, cfg Config) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "checkoutd"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	statusTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "checkoutd_status_transitions_total",
			Help:        "Checkout status transitions observed, by channel.",
			ConstLabels: constLabels,
		},
		[]string{"to", "channel"}, // channel: initial | push | poll
	)

	pollTicks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "checkoutd_poll_ticks_total",
			Help:        "Poll-channel refreshes, by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	confirmAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "checkoutd_confirm_attempts_total",
			Help:        "Payment follow-up attempts, by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // confirmed | already_confirmed | failed
	)

	terminalRedirects := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "checkoutd_terminal_redirects_total",
			Help:        "One-shot terminal navigations fired.",
			ConstLabels: constLabels,
		},
		[]string{"kind"}, // reopen | confirmed
	)

	grantsObserved := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "checkoutd_benefit_grants_observed",
			Help:        "Benefit grants observed for the active checkout.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		statusTransitions,
		pollTicks,
		confirmAttempts,
		terminalRedirects,
		grantsObserved,
	)

	return &ReconcilerMetrics{
		statusTransitions: statusTransitions,
		pollTicks:         pollTicks,
		confirmAttempts:   confirmAttempts,
		terminalRedirects: terminalRedirects,
		grantsObserved:    grantsObserved,
	}
}

func (m *ReconcilerMetrics) ObserveTransition(to string, channel string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to, channel).Inc()
}

func (m *ReconcilerMetrics) ObservePollTick(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	m.pollTicks.WithLabelValues(result).Inc()
}

func (m *ReconcilerMetrics) ObserveConfirmAttempt(result string) {
	if m == nil {
		return
	}
	m.confirmAttempts.WithLabelValues(result).Inc()
}

func (m *ReconcilerMetrics) ObserveRedirect(kind string) {
	if m == nil {
		return
	}
	m.terminalRedirects.WithLabelValues(kind).Inc()
}

func (m *ReconcilerMetrics) SetGrantsObserved(count int) {
	if m == nil {
		return
	}
	m.grantsObserved.Set(float64(count))
}
