package relay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Delivered when the analyzer cannot answer; the user turn is never left
// hanging without a reply.
const fallbackReply = "I'm having trouble responding right now, but I'm still here with you. " +
	"Could you share that again in a moment?"

// Reply is the outcome of one submission, delivered back on the channel
// that submitted it.
type Reply struct {
	Turn chat.Turn
	Err  error
}

type submission struct {
	text  string
	reply chan Reply
}

// Session is one live chat. All turn processing happens on the session's
// own worker goroutine, so submissions are totally ordered and the tail and
// sequence counter need no cross-session synchronization.
type Session struct {
	ChatID        string
	ParticipantID string

	svc   *Service
	inbox chan submission
	done  chan struct{}

	mu         sync.Mutex
	state      chat.State
	tail       []chat.Turn
	seq        int64
	lastActive time.Time
}

func newSession(svc *Service, chatID, participantID string) *Session {
	return &Session{
		ChatID:        chatID,
		ParticipantID: participantID,
		svc:           svc,
		inbox:         make(chan submission, svc.cfg.InboxDepth),
		done:          make(chan struct{}),
		state:         chat.StateUnauthenticated,
		lastActive:    time.Now(),
	}
}

// State returns the session's authentication state.
func (s *Session) State() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkAuthenticated transitions the session into the authenticated state
// after the channel's credentials were verified.
func (s *Session) MarkAuthenticated() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == chat.StateClosed {
		return ErrSessionClosed
	}
	s.state = chat.StateAuthenticated
	s.lastActive = time.Now()
	return nil
}

// Touch records channel activity for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastActiveTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Submit queues one user turn. The reply is delivered asynchronously on the
// returned channel; submissions are processed strictly in queue order. A
// full inbox rejects the submission instead of blocking the caller.
func (s *Session) Submit(text string) (<-chan Reply, error) {
	s.mu.Lock()
	switch s.state {
	case chat.StateUnauthenticated:
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	case chat.StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.lastActive = time.Now()
	s.mu.Unlock()

	sub := submission{text: text, reply: make(chan Reply, 1)}
	select {
	case s.inbox <- sub:
		return sub.reply, nil
	default:
		return nil, ErrSessionBusy
	}
}

func (s *Session) close() {
	s.mu.Lock()
	if s.state == chat.StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = chat.StateClosed
	s.mu.Unlock()
	close(s.done)
}

// run is the session worker. It exits when the session closes; an in-flight
// submission is allowed to finish first so its result is still persisted
// even if nothing remains to receive it.
func (s *Session) run() {
	for {
		select {
		case <-s.done:
			s.drain()
			return
		case sub := <-s.inbox:
			s.process(sub)
		}
	}
}

func (s *Session) drain() {
	for {
		select {
		case sub := <-s.inbox:
			sub.reply <- Reply{Err: ErrSessionClosed}
		default:
			return
		}
	}
}

// process runs the relay algorithm for one user turn: persist the turn
// first, then analyze, then persist and deliver the reply. Durability comes
// before analysis so a turn is recorded even when analysis fails.
func (s *Session) process(sub submission) {
	history := s.historyWindow()

	userTurn := chat.Turn{
		Seq:       s.nextSeq(),
		Role:      chat.RoleUser,
		Content:   sub.text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.persist(userTurn); err != nil {
		// Surfaced, never retried silently: a duplicate write is worse
		// than asking the participant to resend.
		sub.reply <- Reply{Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
		return
	}
	s.commit(userTurn)

	assistantTurn := s.buildAssistantTurn(sub.text, history)
	if err := s.persist(assistantTurn); err != nil {
		sub.reply <- Reply{Err: fmt.Errorf("%w: %v", ErrPersistence, err)}
		return
	}
	s.commit(assistantTurn)

	sub.reply <- Reply{Turn: assistantTurn}

	if assistantTurn.Risk == chat.RiskHigh {
		s.svc.alerts.Publish(chat.EscalationEvent{
			ChatID:        s.ChatID,
			ParticipantID: s.ParticipantID,
			Message:       assistantTurn.Content,
			Emotion:       *assistantTurn.Emotion,
			Risk:          assistantTurn.Risk,
			Timestamp:     assistantTurn.CreatedAt,
		})
	}
}

// buildAssistantTurn runs the analyzer and converts failure into the
// fallback reply. Risk stays unset on the fallback path: unknown risk is
// not HIGH, so no escalation fires.
func (s *Session) buildAssistantTurn(text string, history []chat.Turn) chat.Turn {
	ctx, cancel := context.WithTimeout(context.Background(), s.svc.cfg.CallTimeout)
	result, err := s.svc.analyzer.Analyze(ctx, text, history)
	cancel()

	turn := chat.Turn{
		Seq:       s.nextSeq(),
		Role:      chat.RoleAssistant,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		log.Printf("[relay] analyzer failed chat=%s: %v", s.ChatID, err)
		turn.Content = fallbackReply
		return turn
	}

	emotion := result.Emotion
	turn.Content = result.Response
	turn.Emotion = &emotion
	turn.Risk = result.Risk
	return turn
}

// persist writes a turn under its own bounded deadline, deliberately
// detached from the channel's lifetime: a disconnect must not corrupt the
// transcript mid-write.
func (s *Session) persist(turn chat.Turn) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.svc.cfg.CallTimeout)
	defer cancel()
	return s.svc.store.Append(ctx, s.ChatID, turn)
}

// nextSeq peeks the next sequence number without consuming it; the number
// is only committed together with the turn after a successful persist, so
// a failed write leaves no gap.
func (s *Session) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq + 1
}

func (s *Session) commit(turn chat.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = turn.Seq
	s.tail = append(s.tail, turn)
	if limit := s.svc.cfg.HistoryWindow; len(s.tail) > limit*2 {
		s.tail = s.tail[len(s.tail)-limit:]
	}
	s.lastActive = time.Now()
}

// historyWindow snapshots the analyzer context: the tail as it stood before
// the new turn, capped at the configured window.
func (s *Session) historyWindow() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := s.tail
	if limit := s.svc.cfg.HistoryWindow; len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}
	copied := make([]chat.Turn, len(tail))
	copy(copied, tail)
	return copied
}
