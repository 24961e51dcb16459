package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/validation"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

// IdentityRegistry defines the registry operations the join handler needs
type IdentityRegistry interface {
	Resolve(ctx context.Context, username string) (*models.Participant, error)
}

// ChangePublisher notifies subscribers that the participant collection changed
type ChangePublisher interface {
	PublishParticipants()
}

// JoinHandler handles join requests: a display name in, a participant out
type JoinHandler struct {
	logger    *slog.Logger
	registry  IdentityRegistry
	publisher ChangePublisher
}

// NewJoinHandler creates a new join handler
func NewJoinHandler(logger *slog.Logger, reg IdentityRegistry, pub ChangePublisher) *JoinHandler {
	return &JoinHandler{
		logger:    logger,
		registry:  reg,
		publisher: pub,
	}
}

// Join handles POST /api/v1/join.
// Malformed input is rejected here, synchronously, before anything
// reaches the store; joining twice with one name returns the same
// participant both times.
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode join request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := validation.NormalizeUsername(req.Username)
	if err := validation.ValidateUsername(username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.registry.Resolve(ctx, username)
	if err != nil {
		h.logger.Error("failed to resolve participant", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.publisher.PublishParticipants()

	resp := api.JoinResponse{
		Participant: api.Participant{
			ID:           p.ID,
			Username:     p.Username,
			Color:        p.Color,
			LastActiveAt: p.LastActiveAt,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode join response", "error", err)
	}

	h.logger.Info("participant joined", "participant_id", p.ID, "username", p.Username)
}

// writeError sends a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg})
}
