// Package chat exposes the REST surface around the relay: session bootstrap
// and transcript reads.
package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sosai/counsel/backend/internal/model/chat"
	"github.com/sosai/counsel/backend/internal/service/auth"
	"github.com/sosai/counsel/backend/internal/storage/transcript"
	"github.com/sosai/counsel/backend/pkg/utils"
)

const greeting = "Hello, I'm here for you. Whatever is on your mind, you can share it with me - this conversation is anonymous."

const defaultHistoryLimit = 50

// Handler serves the chat REST endpoints.
type Handler struct {
	issuer auth.Issuer
	store  transcript.Store
}

// New creates the chat handler.
func New(issuer auth.Issuer, store transcript.Store) *Handler {
	return &Handler{issuer: issuer, store: store}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/start", h.handleStart)
	r.Get("/chat/{chatID}/history", h.handleHistory)
}

// handleStart issues the identifiers and credential a client needs before
// opening its channel: a chat id, an anonymous participant id and a one-time
// plaintext credential whose hash is retained server-side.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	chatID := uuid.NewString()
	participantID := uuid.NewString()

	credential, err := h.issuer.Issue(participantID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue credential")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"chatId":        chatID,
		"participantId": participantID,
		"credential":    credential,
		"message":       greeting,
		"riskLevel":     chat.RiskLow,
	})
}

// handleHistory returns the most recent persisted turns for a chat.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		utils.RespondError(w, http.StatusBadRequest, "chatID is required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	turns, err := h.store.LoadRecent(r.Context(), chatID, limit)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}
