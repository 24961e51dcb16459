package storage

import "github.com/ubohub-bot/whiteboard/pkg/api"

// SnapshotCache defines the interface for the client's local cache of
// the last confirmed server state. It lets a restarted client paint
// immediately while the first live snapshot is still in flight; the
// cache is never authoritative and is replaced wholesale on every
// delivery.
type SnapshotCache interface {
	// SaveSnapshot replaces the cached snapshot
	SaveSnapshot(snap *api.Snapshot) error

	// GetSnapshot returns the cached snapshot.
	// Returns ErrSnapshotNotFound if nothing has been cached yet.
	GetSnapshot() (*api.Snapshot, error)

	// SaveParticipant replaces the cached join identity
	SaveParticipant(p *api.Participant) error

	// GetParticipant returns the cached join identity.
	// Returns ErrParticipantNotFound if nothing has been cached yet.
	GetParticipant() (*api.Participant, error)
}
