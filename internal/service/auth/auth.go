// Package auth validates a connecting channel's claimed identity against
// issued credentials before it is admitted into the session registry.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMalformed          = errors.New("chat id, participant id and credential are required")
	ErrNotFound           = errors.New("participant not found")
	ErrCredentialMismatch = errors.New("credential mismatch")
)

// Reason maps an authentication error onto its wire identifier.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrCredentialMismatch):
		return "CredentialMismatch"
	default:
		return "Malformed"
	}
}

// CredentialStore resolves the stored credential hash for a participant.
// Pluggable so the relay is not coupled to any particular storage backend.
type CredentialStore interface {
	CredentialHash(participantID string) ([]byte, bool)
}

// Issuer mints a fresh credential for a participant, returning the
// plaintext exactly once. Only the hash is retained.
type Issuer interface {
	Issue(participantID string) (string, error)
}

// Authenticator verifies channel credentials.
type Authenticator struct {
	creds CredentialStore
}

// New builds an Authenticator over the supplied credential store.
func New(creds CredentialStore) *Authenticator {
	return &Authenticator{creds: creds}
}

// Authenticate checks the presented credential for the claimed participant.
// bcrypt's comparison is constant-time over the hash, so secret material is
// never compared with plain equality.
func (a *Authenticator) Authenticate(chatID, participantID, credential string) error {
	if strings.TrimSpace(chatID) == "" ||
		strings.TrimSpace(participantID) == "" ||
		credential == "" {
		return ErrMalformed
	}

	hash, ok := a.creds.CredentialHash(participantID)
	if !ok {
		return ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(credential)); err != nil {
		return ErrCredentialMismatch
	}
	return nil
}
