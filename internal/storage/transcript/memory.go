package transcript

import (
	"context"
	"sync"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// MemoryStore keeps transcripts in process memory, suitable for development
// and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
}

// NewMemoryStore returns an empty in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]chat.Turn)}
}

// Append records one turn at the end of the chat's log.
func (s *MemoryStore) Append(ctx context.Context, chatID string, turn chat.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[chatID] = append(s.turns[chatID], turn)
	return nil
}

// LoadRecent returns up to n most recent turns in chronological order.
// An unknown chat yields an empty slice, not an error.
func (s *MemoryStore) LoadRecent(ctx context.Context, chatID string, n int) ([]chat.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[chatID]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	return nil
}
