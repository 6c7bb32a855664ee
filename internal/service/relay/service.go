// Package relay owns the live sessions: admission, per-session ordering,
// analyzer calls, transcript persistence and escalation publishing.
package relay

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sosai/counsel/backend/internal/model/chat"
	"github.com/sosai/counsel/backend/internal/service/analyzer"
	"github.com/sosai/counsel/backend/internal/service/escalation"
	"github.com/sosai/counsel/backend/internal/storage/transcript"
)

var (
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrSessionClosed    = errors.New("session is closed")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionBusy      = errors.New("session inbox is full")
	ErrPersistence      = errors.New("transcript persistence failed")
)

// Config bundles the relay's policy knobs. Zero values fall back to bounded
// defaults; none of these are hard design constants.
type Config struct {
	HistoryWindow int           // turns sent to the analyzer as context
	CallTimeout   time.Duration // per analyzer/store call
	InboxDepth    int           // queued submissions per session
	IdleTimeout   time.Duration // inactivity before a session is evicted
	SweepInterval time.Duration // idle janitor cadence
}

func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 20
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.InboxDepth <= 0 {
		c.InboxDepth = 32
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}

// Service is the session registry plus the shared collaborators every
// session worker uses.
type Service struct {
	cfg      Config
	store    transcript.Store
	analyzer analyzer.Analyzer
	alerts   *escalation.Broadcaster

	mu       sync.Mutex
	sessions map[string]*Session

	done      chan struct{}
	closeOnce sync.Once
}

// NewService builds the registry and starts the idle-session janitor.
func NewService(store transcript.Store, an analyzer.Analyzer, alerts *escalation.Broadcaster, cfg Config) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		analyzer: an,
		alerts:   alerts,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// GetOrCreate is the single admission point. An existing live session is
// rejoined; otherwise a fresh unauthenticated session is created with its
// own worker. Creation serializes on the registry lock, so concurrent
// admissions for one chat id never produce duplicate sessions.
func (s *Service) GetOrCreate(chatID, participantID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[chatID]; ok && sess.State() != chat.StateClosed {
		return sess
	}

	sess := newSession(s, chatID, participantID)
	s.sessions[chatID] = sess
	go sess.run()
	return sess
}

// Lookup returns the live session for a chat id, if any.
func (s *Service) Lookup(chatID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok || sess.State() == chat.StateClosed {
		return nil, false
	}
	return sess, true
}

// Remove closes the session and releases its registry slot; subsequent
// lookups for the chat id start fresh.
func (s *Service) Remove(chatID string) {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	if ok {
		delete(s.sessions, chatID)
	}
	s.mu.Unlock()

	if ok {
		sess.close()
	}
}

// InboxDepth reports the configured per-session submission queue depth.
func (s *Service) InboxDepth() int {
	return s.cfg.InboxDepth
}

// SessionCount reports the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor and tears down every session.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		delete(s.sessions, id)
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}

func (s *Service) janitor() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Service) evictIdle() {
	cutoff := time.Now().Add(-s.cfg.IdleTimeout)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastActiveTime().Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		log.Printf("[relay] evicting idle session chat=%s", sess.ChatID)
		sess.close()
	}
}
