package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/storage"
)

// CreateParticipant inserts a new participant record
func (s *Storage) CreateParticipant(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, username, color, last_active_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Username,
		p.Color,
		p.LastActiveAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	return nil
}

// GetParticipantByUsername retrieves the canonical participant for a display
// name. If racing first joins ever produced duplicates, the record inserted
// last wins.
func (s *Storage) GetParticipantByUsername(ctx context.Context, username string) (*models.Participant, error) {
	query := `
		SELECT id, username, color, last_active_at
		FROM participants
		WHERE username = ?
		ORDER BY rowid DESC
		LIMIT 1
	`

	p := &models.Participant{}
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&p.ID,
		&p.Username,
		&p.Color,
		&p.LastActiveAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return p, nil
}

// GetParticipantByID retrieves a participant by id
func (s *Storage) GetParticipantByID(ctx context.Context, id string) (*models.Participant, error) {
	query := `
		SELECT id, username, color, last_active_at
		FROM participants
		WHERE id = ?
	`

	p := &models.Participant{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Username,
		&p.Color,
		&p.LastActiveAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return p, nil
}

// TouchParticipant refreshes a participant's last_active_at timestamp
func (s *Storage) TouchParticipant(ctx context.Context, id string, activeAt int64) error {
	query := `
		UPDATE participants
		SET last_active_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, activeAt, id)
	if err != nil {
		return fmt.Errorf("failed to touch participant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrParticipantNotFound
	}

	return nil
}

// GetActiveParticipants retrieves every participant whose last_active_at is
// at or after the cutoff
func (s *Storage) GetActiveParticipants(ctx context.Context, activeSince int64) ([]*models.Participant, error) {
	query := `
		SELECT id, username, color, last_active_at
		FROM participants
		WHERE last_active_at >= ?
		ORDER BY username ASC
	`

	rows, err := s.db.QueryContext(ctx, query, activeSince)
	if err != nil {
		return nil, fmt.Errorf("failed to query active participants: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.Username, &p.Color, &p.LastActiveAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return participants, nil
}
