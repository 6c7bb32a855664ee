package auth_test

import (
	"errors"
	"testing"

	"github.com/sosai/counsel/backend/internal/service/auth"
)

func TestAuthenticateSuccess(t *testing.T) {
	creds := auth.NewMemoryCredentials()
	credential, err := creds.Issue("p1")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	a := auth.New(creds)
	if err := a.Authenticate("c1", "p1", credential); err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
}

func TestAuthenticateCredentialMismatch(t *testing.T) {
	creds := auth.NewMemoryCredentials()
	if _, err := creds.Issue("p1"); err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	a := auth.New(creds)
	err := a.Authenticate("c1", "p1", "wrong-credential")
	if !errors.Is(err, auth.ErrCredentialMismatch) {
		t.Fatalf("expected ErrCredentialMismatch, got %v", err)
	}
	if auth.Reason(err) != "CredentialMismatch" {
		t.Fatalf("unexpected reason: %s", auth.Reason(err))
	}
}

func TestAuthenticateUnknownParticipant(t *testing.T) {
	a := auth.New(auth.NewMemoryCredentials())
	err := a.Authenticate("c1", "ghost", "anything")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthenticateMalformedInput(t *testing.T) {
	a := auth.New(auth.NewMemoryCredentials())
	cases := [][3]string{
		{"", "p1", "cred"},
		{"c1", "", "cred"},
		{"c1", "p1", ""},
		{"  ", "p1", "cred"},
	}
	for _, c := range cases {
		if err := a.Authenticate(c[0], c[1], c[2]); !errors.Is(err, auth.ErrMalformed) {
			t.Fatalf("Authenticate(%q,%q,%q) = %v, want ErrMalformed", c[0], c[1], c[2], err)
		}
	}
}

func TestRevokedCredentialNoLongerAuthenticates(t *testing.T) {
	creds := auth.NewMemoryCredentials()
	credential, err := creds.Issue("p1")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	creds.Revoke("p1")

	a := auth.New(creds)
	if err := a.Authenticate("c1", "p1", credential); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}
