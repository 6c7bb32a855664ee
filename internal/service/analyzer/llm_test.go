package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

func TestParseCounselorOutputPlainJSON(t *testing.T) {
	content := `{"response":"I'm here with you.","emotionScore":{"anxiety":0.4,"depression":0.9,"anger":0.1,"stress":0.5},"riskLevel":"HIGH"}`

	result, err := parseCounselorOutput(content)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if result.Risk != chat.RiskHigh {
		t.Fatalf("expected HIGH, got %s", result.Risk)
	}
	if result.Emotion.Depression != 0.9 {
		t.Fatalf("unexpected depression axis: %f", result.Emotion.Depression)
	}
}

func TestParseCounselorOutputFencedJSON(t *testing.T) {
	content := "```json\n{\"response\":\"ok\",\"emotionScore\":{},\"riskLevel\":\"low\"}\n```"

	result, err := parseCounselorOutput(content)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if result.Risk != chat.RiskLow {
		t.Fatalf("expected LOW, got %s", result.Risk)
	}
}

func TestParseCounselorOutputClampsAxes(t *testing.T) {
	content := `{"response":"ok","emotionScore":{"anxiety":3.2,"depression":-1},"riskLevel":"MID"}`

	result, err := parseCounselorOutput(content)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if result.Emotion.Anxiety != 1 || result.Emotion.Depression != 0 {
		t.Fatalf("axes not clamped: %+v", result.Emotion)
	}
}

func TestParseCounselorOutputRejectsGarbage(t *testing.T) {
	for _, content := range []string{"", "no json here", `{"response":"","riskLevel":"LOW"}`} {
		if _, err := parseCounselorOutput(content); err == nil {
			t.Fatalf("expected parse error for %q", content)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	got := formatHistory([]chat.Turn{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi, how are you?"},
	})
	if !strings.Contains(got, "User: hello") || !strings.Contains(got, "Counselor: hi, how are you?") {
		t.Fatalf("unexpected history format: %q", got)
	}

	if formatHistory(nil) != "(no prior conversation)" {
		t.Fatalf("unexpected empty history placeholder")
	}
}

func TestHeuristicAnalyzeNeverFails(t *testing.T) {
	result, err := Heuristic{}.Analyze(context.Background(), "I want to die", nil)
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if result.Risk != chat.RiskHigh {
		t.Fatalf("expected HIGH, got %s", result.Risk)
	}
	if result.Response == "" {
		t.Fatal("expected non-empty response")
	}
}
