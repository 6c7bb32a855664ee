// Package ws owns the live channels: the per-chat session channel and the
// monitor channel receiving escalation alerts.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sosai/counsel/backend/internal/service/auth"
	"github.com/sosai/counsel/backend/internal/service/escalation"
	"github.com/sosai/counsel/backend/internal/service/relay"
)

const (
	authTimeout   = 10 * time.Second
	readTimeout   = 60 * time.Second
	pingInterval  = 54 * time.Second
	outboundDepth = 16
)

// Handler upgrades and drives the websocket channels.
type Handler struct {
	relaySvc *relay.Service
	authSvc  *auth.Authenticator
	alerts   *escalation.Broadcaster
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(relaySvc *relay.Service, authSvc *auth.Authenticator, alerts *escalation.Broadcaster) *Handler {
	return &Handler{
		relaySvc: relaySvc,
		authSvc:  authSvc,
		alerts:   alerts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat/{chatID}", h.handleChat)
	r.Get("/ws/monitor", h.handleMonitor)
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outboundFrame struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type authPayload struct {
	ParticipantID string `json:"participantId"`
	Credential    string `json:"credential"`
}

type messagePayload struct {
	Text string `json:"text"`
}

func frame(frameType string, data any) outboundFrame {
	return outboundFrame{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

func errorFrame(reason, message string) outboundFrame {
	return frame("error", map[string]string{"reason": reason, "message": message})
}

// handleChat serves one chat's bidirectional channel. The first frame must
// authenticate; afterwards every message frame is relayed through the
// session worker and its reply streamed back in submission order.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		http.Error(w, "chatID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, ok := h.authenticate(conn, chatID)
	if !ok {
		return
	}
	log.Printf("[ws] channel authenticated chat=%s", chatID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan outboundFrame, outboundDepth)
	// One slot per submission the relay can hold: the session's queued
	// inbox plus the turn its worker is processing. Sized this way the
	// reply queue can never reject a turn the relay already accepted.
	pending := make(chan (<-chan relay.Reply), h.relaySvc.InboxDepth()+1)
	go h.writeLoop(ctx, cancel, conn, out)
	go forwardReplies(ctx, pending, out)

	h.readLoop(ctx, conn, sess, pending, out)

	// The channel is gone: tear the session down. An in-flight submission
	// still completes inside the worker before it exits.
	cancel()
	h.relaySvc.Remove(chatID)
	log.Printf("[ws] channel closed chat=%s", chatID)
}

// authenticate performs the handshake frame exchange. It owns the
// connection exclusively until it returns, so it writes directly.
func (h *Handler) authenticate(conn *websocket.Conn, chatID string) (*relay.Session, bool) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))

	var msg inboundFrame
	if err := conn.ReadJSON(&msg); err != nil {
		conn.WriteJSON(errorFrame("Malformed", "authentication frame expected"))
		return nil, false
	}
	if msg.Type != "auth" {
		conn.WriteJSON(frame("authError", map[string]string{"reason": "Malformed"}))
		return nil, false
	}

	var payload authPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		conn.WriteJSON(frame("authError", map[string]string{"reason": "Malformed"}))
		return nil, false
	}

	if err := h.authSvc.Authenticate(chatID, payload.ParticipantID, payload.Credential); err != nil {
		log.Printf("[ws] authentication failed chat=%s: %v", chatID, err)
		conn.WriteJSON(frame("authError", map[string]string{"reason": auth.Reason(err)}))
		return nil, false
	}

	sess := h.relaySvc.GetOrCreate(chatID, payload.ParticipantID)
	if err := sess.MarkAuthenticated(); err != nil {
		conn.WriteJSON(errorFrame("SessionNotFound", "session closed, reconnect"))
		return nil, false
	}

	conn.WriteJSON(frame("authenticated", nil))
	return sess, true
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *relay.Session, pending chan (<-chan relay.Reply), out chan<- outboundFrame) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundFrame
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error chat=%s: %v", sess.ChatID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		sess.Touch()

		switch msg.Type {
		case "auth":
			// At most one authentication per channel lifetime.
			h.send(ctx, out, errorFrame("Malformed", "channel already authenticated"))
		case "message":
			if done := h.submit(ctx, sess, msg.Data, pending, out); done {
				return
			}
		default:
			h.send(ctx, out, errorFrame("Malformed", "unsupported frame type: "+msg.Type))
		}
	}
}

// submit queues one user turn; returns true when the session is gone and
// the channel should shut down.
func (h *Handler) submit(ctx context.Context, sess *relay.Session, raw json.RawMessage, pending chan (<-chan relay.Reply), out chan<- outboundFrame) bool {
	var payload messagePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Text == "" {
		h.send(ctx, out, errorFrame("Malformed", "message text is required"))
		return false
	}

	// Reserve the reply slot before handing the turn to the relay.
	// Rejecting afterwards would strand an accepted turn: the worker
	// persists it and answers, but nothing forwards the reply, and a
	// client resending on Busy would duplicate the turn. This goroutine
	// is the queue's only sender, so the check cannot race.
	if len(pending) == cap(pending) {
		h.send(ctx, out, errorFrame("Busy", "too many pending messages, please wait"))
		return false
	}

	replies, err := sess.Submit(payload.Text)
	switch {
	case errors.Is(err, relay.ErrSessionBusy):
		h.send(ctx, out, errorFrame("Busy", "too many pending messages, please wait"))
		return false
	case errors.Is(err, relay.ErrNotAuthenticated):
		h.send(ctx, out, errorFrame("Unauthorized", "channel is not authenticated"))
		return false
	case errors.Is(err, relay.ErrSessionClosed), errors.Is(err, relay.ErrSessionNotFound):
		h.send(ctx, out, errorFrame("SessionNotFound", "session closed, reconnect"))
		return true
	case err != nil:
		h.send(ctx, out, errorFrame("Error", "submission failed"))
		return false
	}

	pending <- replies
	return false
}

// forwardReplies drains pending reply channels strictly in submission
// order, preserving the relay's ordering guarantee on the wire.
func forwardReplies(ctx context.Context, pending <-chan (<-chan relay.Reply), out chan<- outboundFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case replies := <-pending:
			select {
			case <-ctx.Done():
				return
			case reply := <-replies:
				var f outboundFrame
				switch {
				case errors.Is(reply.Err, relay.ErrPersistence):
					f = errorFrame("PersistenceFailure", "your message could not be saved, please resend")
				case errors.Is(reply.Err, relay.ErrSessionClosed):
					f = errorFrame("SessionNotFound", "session closed, reconnect")
				case reply.Err != nil:
					f = errorFrame("Error", "message processing failed")
				default:
					f = frame("message", reply.Turn)
				}
				select {
				case <-ctx.Done():
					return
				case out <- f:
				}
			}
		}
	}
}

// writeLoop is the connection's only writer after the handshake. It also
// keeps the channel alive with pings.
func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan outboundFrame) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-out:
			if err := conn.WriteJSON(f); err != nil {
				log.Printf("[ws] write failed: %v", err)
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, out chan<- outboundFrame, f outboundFrame) {
	select {
	case <-ctx.Done():
	case out <- f:
	}
}
