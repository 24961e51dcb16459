package storage

import "errors"

// Common client storage errors
var (
	// ErrSnapshotNotFound indicates that no cached snapshot exists yet
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrParticipantNotFound indicates that no cached participant exists yet
	ErrParticipantNotFound = errors.New("participant not found")
)
