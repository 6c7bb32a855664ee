package auth

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryCredentials keeps bcrypt credential hashes in memory, matching the
// anonymous throwaway nature of the sessions it guards.
type MemoryCredentials struct {
	mu     sync.RWMutex
	hashes map[string][]byte
}

// NewMemoryCredentials returns an empty credential store.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{hashes: make(map[string][]byte)}
}

// Issue mints a credential for the participant and stores only its hash.
func (s *MemoryCredentials) Issue(participantID string) (string, error) {
	credential := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}

	s.mu.Lock()
	s.hashes[participantID] = hash
	s.mu.Unlock()

	return credential, nil
}

// CredentialHash implements CredentialStore.
func (s *MemoryCredentials) CredentialHash(participantID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.hashes[participantID]
	return hash, ok
}

// Revoke forgets a participant's credential.
func (s *MemoryCredentials) Revoke(participantID string) {
	s.mu.Lock()
	delete(s.hashes, participantID)
	s.mu.Unlock()
}
