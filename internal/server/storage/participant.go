package storage

import (
	"context"

	"github.com/ubohub-bot/whiteboard/internal/models"
)

// ParticipantStorage defines the interface for participant persistence.
// Participants are never deleted; freshness is a query-time filter on
// last_active_at, not a stored flag.
type ParticipantStorage interface {
	// CreateParticipant inserts a new participant record.
	// Usernames carry no uniqueness constraint at this layer: two racing
	// first joins with the same name both insert, and lookup by username
	// returns the record written last ("last write observed wins").
	CreateParticipant(ctx context.Context, p *models.Participant) error

	// GetParticipantByUsername retrieves the canonical participant for a
	// display name (the most recently created record with that name).
	// Returns ErrParticipantNotFound if no such participant exists.
	GetParticipantByUsername(ctx context.Context, username string) (*models.Participant, error)

	// GetParticipantByID retrieves a participant by id.
	// Returns ErrParticipantNotFound if no such participant exists.
	GetParticipantByID(ctx context.Context, id string) (*models.Participant, error)

	// TouchParticipant refreshes a participant's last_active_at timestamp.
	// Returns ErrParticipantNotFound if no such participant exists.
	TouchParticipant(ctx context.Context, id string, activeAt int64) error

	// GetActiveParticipants retrieves every participant whose last_active_at
	// is at or after the given cutoff (Unix milliseconds).
	// Returns an empty slice if none qualify.
	GetActiveParticipants(ctx context.Context, activeSince int64) ([]*models.Participant, error)
}
