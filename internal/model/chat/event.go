package chat

import "time"

// EscalationEvent notifies monitors that a HIGH-risk assistant turn occurred.
// It references the session and turn that produced it but owns neither;
// delivery is fire-and-forget and the event is not persisted.
type EscalationEvent struct {
	ChatID        string       `json:"chatId"`
	ParticipantID string       `json:"participantId"`
	Message       string       `json:"message"`
	Emotion       EmotionScore `json:"emotionScore"`
	Risk          RiskLevel    `json:"riskLevel"`
	Timestamp     time.Time    `json:"timestamp"`
}
