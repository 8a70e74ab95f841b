package stripe

import (
	"github.com/polarsource/polar-sub007/internal/cache"
)

// Factory builds a ConfirmClient for one publishable key.
type Factory func(publishableKey string) ConfirmClient

// Registry hands out process-wide client handles, constructed once per
// publishable key and never reconstructed. Re-initializing a client mid-flow
// would invalidate in-progress confirmation state.
type Registry struct {
	factory Factory
	clients cache.Cache[string, ConfirmClient]
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		clients: cache.NewTTLCache[string, ConfirmClient](),
	}
}

// Client returns the handle for publishableKey, building it on first use.
func (r *Registry) Client(publishableKey string) ConfirmClient {
	return r.clients.GetOrSet(publishableKey, 0, func() ConfirmClient {
		return r.factory(publishableKey)
	})
}
