// Package registry implements the identity registry: display names are
// resolved to stable participant records with a persistent color, and
// participant liveness is tracked through heartbeat timestamps.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/storage"
)

// ActivityWindow is how long a participant stays "active" after the last
// heartbeat. Clients heartbeat every 30 seconds; a client that stops
// (crash, network loss, closed tab) silently ages out with no explicit
// disconnect event.
const ActivityWindow = 5 * time.Minute

// Palette is the fixed set of participant colors. A color is drawn
// uniformly at random at creation and never changes.
var Palette = []string{
	"#ef4444", "#f59e0b", "#10b981", "#3b82f6",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// Service implements display-name resolution and activity tracking
type Service struct {
	logger  *slog.Logger
	storage storage.ParticipantStorage
	now     func() time.Time
}

// New creates a new identity registry service
func New(logger *slog.Logger, st storage.ParticipantStorage) *Service {
	return &Service{
		logger:  logger,
		storage: st,
		now:     time.Now,
	}
}

// Resolve returns the participant for a display name, creating one on first
// join. Re-joining with the same name is idempotent: the existing record is
// returned with its last-active timestamp refreshed.
//
// Two simultaneous first joins with the same name are a race; both may
// insert, and the record observed last by the storage layer becomes the
// canonical one. This is a documented weak guarantee, not enforced with
// locking.
func (s *Service) Resolve(ctx context.Context, username string) (*models.Participant, error) {
	now := s.now().UnixMilli()

	existing, err := s.storage.GetParticipantByUsername(ctx, username)
	if err == nil {
		if terr := s.storage.TouchParticipant(ctx, existing.ID, now); terr != nil {
			return nil, fmt.Errorf("failed to refresh activity: %w", terr)
		}
		existing.LastActiveAt = now

		s.logger.Debug("participant re-joined",
			"participant_id", existing.ID,
			"username", username)
		return existing, nil
	}
	if !errors.Is(err, storage.ErrParticipantNotFound) {
		return nil, fmt.Errorf("failed to look up participant: %w", err)
	}

	p := &models.Participant{
		ID:           uuid.New().String(),
		Username:     username,
		Color:        Palette[rand.Intn(len(Palette))],
		LastActiveAt: now,
	}

	if err := s.storage.CreateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	s.logger.Info("participant created",
		"participant_id", p.ID,
		"username", username,
		"color", p.Color)

	return p, nil
}

// Lookup retrieves a participant by id
func (s *Service) Lookup(ctx context.Context, id string) (*models.Participant, error) {
	p, err := s.storage.GetParticipantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// TouchActivity refreshes a participant's last-active timestamp to now.
// This is the sole mechanism keeping a participant inside the activity
// window; calling it any number of times within the window is idempotent
// with respect to the freshness decision.
func (s *Service) TouchActivity(ctx context.Context, id string) error {
	if err := s.storage.TouchParticipant(ctx, id, s.now().UnixMilli()); err != nil {
		return err
	}
	return nil
}

// ActiveParticipants returns every participant whose last heartbeat is
// within the activity window of now. Freshness is computed against the
// query time, never stored, so participants age out of the result set
// with no removal event.
func (s *Service) ActiveParticipants(ctx context.Context) ([]*models.Participant, error) {
	cutoff := s.now().Add(-ActivityWindow).UnixMilli()

	participants, err := s.storage.GetActiveParticipants(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list active participants: %w", err)
	}

	return participants, nil
}
