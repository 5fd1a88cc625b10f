package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Giang1311/BookStore-sub000/internal/interactions"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type InteractionStore interface {
	Insert(ctx context.Context, in interactions.Interaction) error
}

type InteractionsHandler struct {
	Store   InteractionStore
	Tracker *interactions.Tracker
}

type LogInteractionReq struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
	Type   string `json:"interactionType"`
}

func (h *InteractionsHandler) Register(r *chi.Mux) {
	r.Post("/interactions/log", h.logInteraction)
}

func (h *InteractionsHandler) logInteraction(w http.ResponseWriter, r *http.Request) {
	var req LogInteractionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.BookID == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bookId and interactionType are required"})
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Valid userId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := interactions.Interaction{
		UserID:    req.UserID,
		BookID:    req.BookID,
		Type:      req.Type,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.Insert(ctx, in); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to log interaction"})
		return
	}

	if strings.EqualFold(req.Type, "view") {
		h.Tracker.RecordView(req.UserID)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Interaction logged"})
}
