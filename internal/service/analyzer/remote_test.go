package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

func TestRemoteAnalyzeSuccess(t *testing.T) {
	var gotRequest analyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response":     "I hear you, and I'm glad you reached out.",
			"emotionScore": map[string]float64{"anxiety": 0.2, "depression": 0.7, "anger": 0, "stress": 0.4},
			"riskLevel":    "HIGH",
		})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	history := []chat.Turn{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi there"},
	}

	result, err := remote.Analyze(context.Background(), "I feel hopeless", history)
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if result.Risk != chat.RiskHigh {
		t.Fatalf("expected HIGH risk, got %s", result.Risk)
	}
	if result.Emotion.Depression != 0.7 {
		t.Fatalf("unexpected depression axis: %f", result.Emotion.Depression)
	}
	if gotRequest.Message != "I feel hopeless" {
		t.Fatalf("unexpected message: %q", gotRequest.Message)
	}
	if len(gotRequest.ChatHistory) != 2 || gotRequest.ChatHistory[1].Role != "assistant" {
		t.Fatalf("history not forwarded: %+v", gotRequest.ChatHistory)
	}
}

func TestRemoteAnalyzeMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"missing response": `{"emotionScore":{},"riskLevel":"LOW"}`,
		"bad risk level":   `{"response":"ok","emotionScore":{},"riskLevel":"SEVERE"}`,
		"not json":         `oops`,
	}
	for name, body := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		remote := NewRemote(server.URL, time.Second)
		_, err := remote.Analyze(context.Background(), "hi", nil)
		server.Close()
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: expected ErrMalformedResponse, got %v", name, err)
		}
	}
}

func TestRemoteAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	if _, err := remote.Analyze(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestRemoteAnalyzeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	remote := NewRemote(server.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := remote.Analyze(ctx, "hi", nil); err == nil {
		t.Fatal("expected timeout error")
	}
}
