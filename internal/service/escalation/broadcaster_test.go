package escalation

import (
	"testing"
	"time"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

func event(chatID string) chat.EscalationEvent {
	return chat.EscalationEvent{
		ChatID:        chatID,
		ParticipantID: "p1",
		Message:       "please stay with me",
		Risk:          chat.RiskHigh,
		Timestamp:     time.Now().UTC(),
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	first := b.Subscribe()
	second := b.Subscribe()

	b.Publish(event("c1"))

	for _, sub := range []*Subscription{first, second} {
		select {
		case got := <-sub.Events():
			if got.ChatID != "c1" {
				t.Fatalf("unexpected chat id: %s", got.ChatID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()
	healthy := b.Subscribe()

	// Overflow the slow subscriber's buffer without draining it.
	for i := 0; i < defaultBuffer+4; i++ {
		b.Publish(event("c1"))
	}

	received := 0
	for {
		select {
		case <-healthy.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != defaultBuffer {
		t.Fatalf("healthy subscriber received %d events, want %d", received, defaultBuffer)
	}

	// The slow subscriber kept its buffered prefix and dropped the rest.
	if len(slow.ch) != defaultBuffer {
		t.Fatalf("slow subscriber buffered %d events, want %d", len(slow.ch), defaultBuffer)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected zero subscribers, got %d", b.SubscriberCount())
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(event("c1"))

	// Double unsubscribe is a no-op.
	b.Unsubscribe(sub)
}
