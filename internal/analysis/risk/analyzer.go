package risk

import (
	"strings"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Assessment is the heuristic verdict for a single user utterance.
type Assessment struct {
	Level chat.RiskLevel
	Score chat.EmotionScore
}

var highKeywords = []string{
	"kill myself", "suicide", "suicidal", "end my life", "end it all",
	"want to die", "better off dead", "no reason to live", "can't go on",
	"hurt myself", "self-harm", "self harm", "cut myself", "overdose",
}

var midKeywords = []string{
	"hopeless", "worthless", "depressed", "depressing", "anxious", "panic",
	"lonely", "alone", "exhausted", "can't sleep", "cannot sleep",
	"no appetite", "stressed", "overwhelmed", "hate myself", "give up",
	"numb", "empty",
}

var lowKeywords = []string{
	"okay", "fine", "better", "good", "happy", "relieved", "grateful",
	"getting better", "doing well",
}

var axisKeywords = map[string][]string{
	"anxiety": {
		"anxious", "anxiety", "worried", "worry", "panic", "afraid",
		"scared", "nervous", "dread", "on edge",
	},
	"depression": {
		"depressed", "hopeless", "worthless", "empty", "numb", "sad",
		"crying", "lonely", "want to die", "no reason to live", "give up",
	},
	"anger": {
		"angry", "furious", "rage", "hate", "annoyed", "resent",
		"fed up", "pissed",
	},
	"stress": {
		"stressed", "stress", "overwhelmed", "pressure", "burned out",
		"burnt out", "exhausted", "can't cope", "too much",
	},
}

// Assess scores one utterance against the keyword buckets. HIGH keywords win
// outright; otherwise MID keywords beat LOW; an utterance matching nothing is
// LOW.
func Assess(text string) Assessment {
	normalized := strings.ToLower(strings.TrimSpace(text))

	level := chat.RiskLow
	switch {
	case containsAny(normalized, highKeywords):
		level = chat.RiskHigh
	case containsAny(normalized, midKeywords):
		level = chat.RiskMid
	case containsAny(normalized, lowKeywords):
		level = chat.RiskLow
	}

	return Assessment{
		Level: level,
		Score: scoreAxes(normalized, level),
	}
}

func containsAny(normalized string, keywords []string) bool {
	for _, word := range keywords {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

func scoreAxes(normalized string, level chat.RiskLevel) chat.EmotionScore {
	hits := make(map[string]int, len(axisKeywords))
	for axis, keywords := range axisKeywords {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				hits[axis]++
			}
		}
	}

	// Exclamation marks tend to accompany anger or acute stress.
	if marks := strings.Count(normalized, "!"); marks > 0 {
		hits["anger"] += marks
		hits["stress"] += marks
	}

	score := chat.EmotionScore{
		Anxiety:    axisValue(hits["anxiety"]),
		Depression: axisValue(hits["depression"]),
		Anger:      axisValue(hits["anger"]),
		Stress:     axisValue(hits["stress"]),
	}

	// A HIGH-risk utterance always registers on the depression axis even
	// when no axis keyword matched, so monitors see a non-zero score.
	if level == chat.RiskHigh && score.Depression < 0.8 {
		score.Depression = 0.8
	}
	return score
}

func axisValue(hits int) float64 {
	val := 0.3 * float64(hits)
	if val > 1 {
		return 1
	}
	return val
}
