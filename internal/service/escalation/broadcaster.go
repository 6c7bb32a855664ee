// Package escalation fans HIGH-risk events out to connected monitors.
package escalation

import (
	"log"
	"sync"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

const defaultBuffer = 8

// Subscription is one monitor's view of the escalation stream. Events()
// stays open until Unsubscribe.
type Subscription struct {
	id uint64
	ch chan chat.EscalationEvent
}

// Events returns the subscriber's delivery channel.
func (s *Subscription) Events() <-chan chat.EscalationEvent {
	return s.ch
}

// Broadcaster delivers escalation events to every live subscription.
// Delivery is best-effort and independent per subscriber: a monitor that
// cannot keep up misses events rather than stalling the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
}

// NewBroadcaster builds an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a new monitor.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id: b.nextID,
		ch: make(chan chat.EscalationEvent, b.buffer),
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the monitor and closes its event channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// Publish delivers the event to every current subscriber without blocking.
// A full subscriber buffer drops the event for that subscriber only.
func (b *Broadcaster) Publish(event chat.EscalationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			log.Printf("[escalation] subscriber %d lagging, dropped event chat=%s", sub.id, event.ChatID)
		}
	}
}

// SubscriberCount reports how many monitors are connected.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
