package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/sosai/counsel/backend/internal/model/chat"
	"github.com/sosai/counsel/backend/internal/service/auth"
	"github.com/sosai/counsel/backend/internal/storage/transcript"
)

func setupRouter() (*chi.Mux, *auth.MemoryCredentials, *transcript.MemoryStore) {
	creds := auth.NewMemoryCredentials()
	store := transcript.NewMemoryStore()
	handler := New(creds, store)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, creds, store
}

func TestStartIssuesUsableCredential(t *testing.T) {
	r, creds, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/chat/start", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var payload struct {
		ChatID        string `json:"chatId"`
		ParticipantID string `json:"participantId"`
		Credential    string `json:"credential"`
		Message       string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ChatID == "" || payload.ParticipantID == "" || payload.Credential == "" {
		t.Fatalf("incomplete bootstrap payload: %+v", payload)
	}
	if payload.Message == "" {
		t.Fatal("expected greeting message")
	}

	a := auth.New(creds)
	if err := a.Authenticate(payload.ChatID, payload.ParticipantID, payload.Credential); err != nil {
		t.Fatalf("issued credential does not authenticate: %v", err)
	}
}

func TestHistoryReturnsPersistedTurns(t *testing.T) {
	r, _, store := setupRouter()

	ctx := context.Background()
	now := time.Now().UTC()
	store.Append(ctx, "c1", chatmodel.Turn{Seq: 1, Role: chatmodel.RoleUser, Content: "hello", CreatedAt: now})
	store.Append(ctx, "c1", chatmodel.Turn{Seq: 2, Role: chatmodel.RoleAssistant, Content: "hi", CreatedAt: now})

	req := httptest.NewRequest(http.MethodGet, "/chat/c1/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var turns []chatmodel.Turn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "hello" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
}

func TestHistoryUnknownChatIsEmptyList(t *testing.T) {
	r, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/chat/missing/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON list, got %q", body)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	r, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/chat/c1/history?limit=zero", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
