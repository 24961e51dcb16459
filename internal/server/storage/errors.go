package storage

import "errors"

// Common storage errors
var (
	// ErrParticipantNotFound indicates that the participant was not found in storage
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrElementNotFound indicates that the element was not found in storage.
	// An update that races with a committed delete fails with this error;
	// deleted elements are never resurrected.
	ErrElementNotFound = errors.New("element not found")
)
