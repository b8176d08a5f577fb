// Package realtime fans booking and order events out to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	EventProviderAssigned   = "provider_assigned"
	EventOrderStatusChanged = "order_status_changed"
)

// Event is the JSON frame delivered to subscribers.
type Event struct {
	Type       string    `json:"type"`
	Topic      string    `json:"topic"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Subscriber receives encoded frames. Deliver must not block; returning false
// tells the hub the subscriber can no longer keep up.
type Subscriber interface {
	Deliver(frame []byte) bool
	Close()
}

// Broadcaster is the injected registry domain services publish through.
// Broadcast is fire-and-forget.
type Broadcaster interface {
	Register(topic string, sub Subscriber)
	Unregister(topic string, sub Subscriber)
	Broadcast(ctx context.Context, topic string, event Event)
}

// BookingTopic keys subscriptions for a single booking.
func BookingTopic(bookingID string) string { return "booking:" + bookingID }

// OrderTopic keys subscriptions for a single order.
func OrderTopic(orderID string) string { return "order:" + orderID }

// Hub is an in-process Broadcaster.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
	logg   *logger.Logger
	now    func() time.Time
}

func NewHub(logg *logger.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[Subscriber]struct{}),
		logg:   logg,
		now:    time.Now,
	}
}

func (h *Hub) Register(topic string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[Subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
}

func (h *Hub) Unregister(topic string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(topic, sub)
}

func (h *Hub) removeLocked(topic string, sub Subscriber) bool {
	subs, ok := h.topics[topic]
	if !ok {
		return false
	}
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	return true
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Broadcast(ctx context.Context, topic string, event Event) {
	event.Topic = topic
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now().UTC()
	}
	frame, err := json.Marshal(event)
	if err != nil {
		if h.logg != nil {
			h.logg.Error(ctx, "realtime event encode failed", err)
		}
		return
	}

	h.mu.RLock()
	var slow []Subscriber
	for sub := range h.topics[topic] {
		if !sub.Deliver(frame) {
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range slow {
		if h.removeLocked(topic, sub) {
			sub.Close()
		}
	}
	h.mu.Unlock()
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"topic": topic, "dropped": len(slow)})
		h.logg.Warn(ctx, "dropped slow realtime subscribers")
	}
}

// Nop discards every event. Used when realtime delivery is disabled.
type Nop struct{}

func (Nop) Register(string, Subscriber) {}

func (Nop) Unregister(string, Subscriber) {}

func (Nop) Broadcast(context.Context, string, Event) {}
