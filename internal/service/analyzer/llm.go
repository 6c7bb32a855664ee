package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

const counselorSystemPrompt = "You are an empathetic crisis counselor for an anonymous support line. " +
	"Read the recent conversation and the user's latest message, then reply with warmth and without judgment. " +
	"You must also assess emotional risk.\n" +
	"Output requirements: return exactly one JSON object with these fields: " +
	"response (your counselor reply as a string), " +
	"emotionScore (object with numeric fields anxiety, depression, anger, stress, each between 0 and 1), " +
	"riskLevel (one of LOW, MID, HIGH - HIGH only for self-harm or suicide risk). " +
	"If riskLevel is HIGH, the response must include crisis-line guidance. " +
	"Do not output anything besides the JSON object."

const counselorUserPrompt = "Recent conversation:\n{history}\n\nUser's latest message:\n{message}\n\nReturn the JSON now."

// LLM scores turns with a chat model compiled into an eino chain. Output the
// model mangles falls back to the keyword heuristic rather than failing the
// turn; only model invocation errors propagate to the relay.
type LLM struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
	fallback Heuristic
}

// NewLLM compiles the counselor chain over the supplied chat model.
func NewLLM(ctx context.Context, chatModel model.ChatModel) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(counselorSystemPrompt),
		schema.UserMessage(counselorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile counselor chain: %w", err)
	}

	return &LLM{runnable: runnable}, nil
}

// Analyze implements Analyzer.
func (l *LLM) Analyze(ctx context.Context, text string, history []chat.Turn) (Result, error) {
	input := map[string]any{
		"history": formatHistory(history),
		"message": text,
	}

	msg, err := l.runnable.Invoke(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("invoke counselor chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Result{}, fmt.Errorf("%w: empty model output", ErrMalformedResponse)
	}

	result, err := parseCounselorOutput(msg.Content)
	if err != nil {
		log.Printf("[analyzer] model output parse failed, using heuristic: %v", err)
		return l.fallback.Analyze(ctx, text, history)
	}
	return result, nil
}

type counselorPayload struct {
	Response     string            `json:"response"`
	EmotionScore chat.EmotionScore `json:"emotionScore"`
	RiskLevel    string            `json:"riskLevel"`
}

// parseCounselorOutput extracts the JSON object from the model reply, which
// may be wrapped in prose or code fences.
func parseCounselorOutput(content string) (Result, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return Result{}, fmt.Errorf("%w: missing json object", ErrMalformedResponse)
	}

	var payload counselorPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	riskLevel := chat.RiskLevel(strings.ToUpper(strings.TrimSpace(payload.RiskLevel)))
	if payload.Response == "" || !riskLevel.Valid() {
		return Result{}, fmt.Errorf("%w: response=%q riskLevel=%q",
			ErrMalformedResponse, payload.Response, payload.RiskLevel)
	}

	return Result{
		Response: payload.Response,
		Emotion:  clampScore(payload.EmotionScore),
		Risk:     riskLevel,
	}, nil
}

func clampScore(score chat.EmotionScore) chat.EmotionScore {
	return chat.EmotionScore{
		Anxiety:    clampAxis(score.Anxiety),
		Depression: clampAxis(score.Depression),
		Anger:      clampAxis(score.Anger),
		Stress:     clampAxis(score.Stress),
	}
}

func clampAxis(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 1 {
		return 1
	}
	return val
}

func formatHistory(turns []chat.Turn) string {
	if len(turns) == 0 {
		return "(no prior conversation)"
	}

	var builder strings.Builder
	for i, turn := range turns {
		role := "User"
		if turn.Role == chat.RoleAssistant {
			role = "Counselor"
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		builder.WriteString(role)
		builder.WriteString(": ")
		builder.WriteString(content)
		if i < len(turns)-1 {
			builder.WriteString("\n")
		}
	}
	if builder.Len() == 0 {
		return "(no prior conversation)"
	}
	return builder.String()
}
