package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sosai/counsel/backend/internal/model/chat"
)

// Remote calls an external risk-analysis service over HTTP. The wire
// contract is the analyze endpoint: {message, chatHistory} in,
// {response, emotionScore, riskLevel} out.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote builds a client for the given analyze endpoint URL. The timeout
// bounds the whole call; a hung analyzer surfaces as a failed turn, never a
// stalled session.
func NewRemote(url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Remote{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type analyzeRequest struct {
	Message     string         `json:"message"`
	ChatHistory []historyEntry `json:"chatHistory"`
}

type analyzeResponse struct {
	Response     string            `json:"response"`
	EmotionScore chat.EmotionScore `json:"emotionScore"`
	RiskLevel    string            `json:"riskLevel"`
}

// Analyze implements Analyzer.
func (r *Remote) Analyze(ctx context.Context, text string, history []chat.Turn) (Result, error) {
	payload := analyzeRequest{
		Message:     text,
		ChatHistory: make([]historyEntry, 0, len(history)),
	}
	for _, turn := range history {
		payload.ChatHistory = append(payload.ChatHistory, historyEntry{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	riskLevel := chat.RiskLevel(strings.ToUpper(strings.TrimSpace(decoded.RiskLevel)))
	if decoded.Response == "" || !riskLevel.Valid() {
		return Result{}, fmt.Errorf("%w: response=%q riskLevel=%q",
			ErrMalformedResponse, decoded.Response, decoded.RiskLevel)
	}

	return Result{
		Response: decoded.Response,
		Emotion:  decoded.EmotionScore,
		Risk:     riskLevel,
	}, nil
}
