package bus

import (
	"context"
	"sync"

	"league-system/models"
)

// Handler consumes one event. A non-nil error leaves the message
// unacknowledged and eligible for redelivery, so handlers must be idempotent
// with respect to repeated delivery of the same event.
type Handler func(ctx context.Context, event models.DomainEvent) error

// Bus is a thin abstraction over a topic-based broker with at-least-once
// delivery per consumer group and per-key ordering within a topic.
type Bus interface {
	Publish(ctx context.Context, topic string, event models.DomainEvent) error
	Subscribe(ctx context.Context, topic, groupID string, handler Handler)
}

// InMemory relays published events directly to subscribed handlers, one
// delivery per consumer group. Used in tests and local development.
type InMemory struct {
	mu     sync.Mutex
	groups map[string]map[string]Handler // topic -> groupID -> handler

	Published []PublishedEvent
}

type PublishedEvent struct {
	Topic string
	Event models.DomainEvent
}

func NewInMemory() *InMemory {
	return &InMemory{groups: make(map[string]map[string]Handler)}
}

func (b *InMemory) Publish(ctx context.Context, topic string, event models.DomainEvent) error {
	b.mu.Lock()
	b.Published = append(b.Published, PublishedEvent{Topic: topic, Event: event})
	handlers := make([]Handler, 0, len(b.groups[topic]))
	for _, h := range b.groups[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		// Handler errors are a consumer-side concern; publish never fails on them.
		_ = h(ctx, event)
	}
	return nil
}

func (b *InMemory) Subscribe(_ context.Context, topic, groupID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[topic] == nil {
		b.groups[topic] = make(map[string]Handler)
	}
	b.groups[topic][groupID] = handler
}
