package analyzer

import (
	"context"

	"github.com/sosai/counsel/backend/internal/analysis/risk"
	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Heuristic is the keyword-based analyzer. It never fails, which makes it
// the standalone development mode and the fallback inside the LLM analyzer.
type Heuristic struct{}

// Analyze implements Analyzer.
func (Heuristic) Analyze(ctx context.Context, text string, _ []chat.Turn) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	assessment := risk.Assess(text)
	return Result{
		Response: risk.Respond(text, assessment),
		Emotion:  assessment.Score,
		Risk:     assessment.Level,
	}, nil
}
