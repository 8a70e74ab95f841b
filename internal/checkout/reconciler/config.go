package reconciler

import "time"

// Config controls the reconciliation loops for one session.
type Config struct {
	// MaxWaitingTime is the poll cadence for both checkout status and
	// benefit grants while a sub-state-machine is waiting.
	MaxWaitingTime time.Duration
	// Disabled suppresses all scheduling: no subscriptions, no timers.
	Disabled bool
}

func DefaultConfig() Config {
	return Config{
		MaxWaitingTime: 15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxWaitingTime <= 0 {
		c.MaxWaitingTime = DefaultConfig().MaxWaitingTime
	}
	return c
}
