package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleMonitor serves one monitor's escalation feed. The subscription is
// registered for the lifetime of the connection; events the monitor cannot
// keep up with are dropped by the broadcaster, never queued unboundedly.
func (h *Handler) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[monitor] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.alerts.Subscribe()
	defer h.alerts.Unsubscribe(sub)
	log.Printf("[monitor] subscriber connected, total=%d", h.alerts.SubscriberCount())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Monitors only listen; the read loop exists to notice the disconnect.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[monitor] subscriber disconnected")
			return
		case event := <-sub.Events():
			if err := conn.WriteJSON(frame("expertAlert", event)); err != nil {
				log.Printf("[monitor] write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
