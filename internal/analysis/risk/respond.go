package risk

import (
	"strings"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Crisis guidance appended to every HIGH-risk reply.
const crisisGuidance = "If you are thinking about harming yourself, please reach out right now: " +
	"call or text 988 (Suicide & Crisis Lifeline, 24/7) or dial your local emergency number. " +
	"You do not have to face this alone."

// Respond produces a canned counselor reply matching the assessed risk.
// Used when no analysis model is configured and as the wording baseline for
// model-backed replies.
func Respond(text string, a Assessment) string {
	switch a.Level {
	case chat.RiskHigh:
		return "I'm really concerned about what you just shared, and I'm glad you told me. " +
			"Your life matters. " + crisisGuidance
	case chat.RiskMid:
		reply := "That sounds genuinely hard, and it makes sense that you feel this way. " +
			"Can you tell me more about what has been weighing on you?"
		if a.Score.Anxiety >= a.Score.Depression && a.Score.Anxiety > 0 {
			reply = "It sounds like a lot of worry is sitting with you right now. " +
				"Let's slow down together - what feels most pressing at this moment?"
		}
		return reply
	default:
		if strings.TrimSpace(text) == "" {
			return "I'm here and listening. What's on your mind?"
		}
		return "Thank you for sharing that with me. I'm here to listen - " +
			"how have things been for you lately?"
	}
}
