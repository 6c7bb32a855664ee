package chat

import "time"

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RiskLevel is the analyzer-assigned severity of a turn's emotional content.
type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskMid  RiskLevel = "MID"
	RiskHigh RiskLevel = "HIGH"
)

// Valid reports whether the level is one of the known severities.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMid, RiskHigh:
		return true
	}
	return false
}

// EmotionScore carries the four independent emotion axes measured per turn.
// Axes are non-negative; the analyzer normalizes them into [0,1].
type EmotionScore struct {
	Anxiety    float64 `json:"anxiety"`
	Depression float64 `json:"depression"`
	Anger      float64 `json:"anger"`
	Stress     float64 `json:"stress"`
}

// Turn is one message in a transcript. Turns are immutable once created;
// they are appended, never mutated or reordered.
type Turn struct {
	Seq       int64         `json:"seq"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"timestamp"`
	Emotion   *EmotionScore `json:"emotionScore,omitempty"`
	Risk      RiskLevel     `json:"riskLevel,omitempty"`
}
