package risk

import (
	"strings"
	"testing"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

func TestAssessHighRiskKeywords(t *testing.T) {
	cases := []string{
		"I want to die",
		"sometimes I think about suicide",
		"I might hurt myself tonight",
	}
	for _, text := range cases {
		got := Assess(text)
		if got.Level != chat.RiskHigh {
			t.Fatalf("Assess(%q) level = %s, want HIGH", text, got.Level)
		}
		if got.Score.Depression == 0 {
			t.Fatalf("Assess(%q) depression axis = 0, want > 0", text)
		}
	}
}

func TestAssessMidRiskKeywords(t *testing.T) {
	got := Assess("I feel so hopeless and I can't sleep")
	if got.Level != chat.RiskMid {
		t.Fatalf("expected MID, got %s", got.Level)
	}
	if got.Score.Depression == 0 {
		t.Fatalf("expected non-zero depression axis")
	}
}

func TestAssessNeutralDefaultsLow(t *testing.T) {
	got := Assess("the weather is nice today")
	if got.Level != chat.RiskLow {
		t.Fatalf("expected LOW, got %s", got.Level)
	}
	if got.Score != (chat.EmotionScore{}) {
		t.Fatalf("expected zero emotion score, got %+v", got.Score)
	}
}

func TestAssessAxisCapping(t *testing.T) {
	got := Assess("anxious worried panic afraid scared nervous dread")
	if got.Score.Anxiety != 1 {
		t.Fatalf("expected anxiety capped at 1, got %f", got.Score.Anxiety)
	}
}

func TestRespondHighIncludesCrisisGuidance(t *testing.T) {
	a := Assess("I want to end it all")
	reply := Respond("I want to end it all", a)
	if !strings.Contains(reply, "988") {
		t.Fatalf("HIGH reply missing crisis guidance: %q", reply)
	}
}

func TestRespondLowIsNonEmpty(t *testing.T) {
	a := Assess("hello")
	if Respond("hello", a) == "" {
		t.Fatal("expected non-empty reply")
	}
}
