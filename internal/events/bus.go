package events

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus is the push channel abstraction: best-effort, unordered relative to
// polling. Handlers for a topic must share one function signature.
type Bus interface {
	On(topic string, handler any) error
	Off(topic string, handler any) error
	Emit(topic string, args ...any)
}

type bus struct {
	inner evbus.Bus
}

// NewBus builds an in-process bus. Webhook and poll producers both funnel
// into the same consumers, so delivery duplication is harmless.
func NewBus() Bus {
	return &bus{inner: evbus.New()}
}

func (b *bus) On(topic string, handler any) error {
	return b.inner.Subscribe(topic, handler)
}

func (b *bus) Off(topic string, handler any) error {
	return b.inner.Unsubscribe(topic, handler)
}

func (b *bus) Emit(topic string, args ...any) {
	b.inner.Publish(topic, args...)
}
