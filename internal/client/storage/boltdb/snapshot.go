package boltdb

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ubohub-bot/whiteboard/internal/client/storage"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

var (
	keyLatest = []byte("latest")
	keySelf   = []byte("self")
)

// SaveSnapshot replaces the cached snapshot with the given one
func (s *Storage) SaveSnapshot(snap *api.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(keyLatest, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetSnapshot returns the cached snapshot.
// Returns storage.ErrSnapshotNotFound if nothing has been cached yet.
func (s *Storage) GetSnapshot() (*api.Snapshot, error) {
	var snap *api.Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSnapshot).Get(keyLatest)
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		snap = &api.Snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// SaveParticipant replaces the cached join identity
func (s *Storage) SaveParticipant(p *api.Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketParticipant).Put(keySelf, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save participant: %w", err)
	}

	return nil
}

// GetParticipant returns the cached join identity.
// Returns storage.ErrParticipantNotFound if nothing has been cached yet.
func (s *Storage) GetParticipant() (*api.Participant, error) {
	var p *api.Participant

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketParticipant).Get(keySelf)
		if data == nil {
			return storage.ErrParticipantNotFound
		}

		p = &api.Participant{}
		if err := json.Unmarshal(data, p); err != nil {
			return fmt.Errorf("failed to unmarshal participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}
