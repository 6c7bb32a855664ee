// Package analyzer defines the contract the relay uses to score user turns
// and the available implementations of it.
package analyzer

import (
	"context"
	"errors"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// ErrMalformedResponse marks an analyzer reply the relay cannot use.
var ErrMalformedResponse = errors.New("malformed analyzer response")

// Result is the analyzer verdict for one user turn.
type Result struct {
	Response string
	Emotion  chat.EmotionScore
	Risk     chat.RiskLevel
}

// Analyzer scores a user turn given the session's recent history and
// produces the counselor reply. Implementations must respect ctx deadlines;
// the relay bounds every call with a timeout.
type Analyzer interface {
	Analyze(ctx context.Context, text string, history []chat.Turn) (Result, error)
}
