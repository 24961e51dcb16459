// Package board implements the shared canvas store: the authoritative
// collection of drawable elements. Any participant may update or delete
// any element; concurrent updates to the same element resolve by
// last-write-wins in the storage layer's commit order.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/storage"
)

// Service implements canvas element CRUD with last-write-wins semantics
type Service struct {
	logger  *slog.Logger
	storage storage.ElementStorage
	now     func() time.Time
}

// New creates a new canvas board service
func New(logger *slog.Logger, st storage.ElementStorage) *Service {
	return &Service{
		logger:  logger,
		storage: st,
		now:     time.Now,
	}
}

// Create persists a new element. The element's id and timestamps are
// assigned here (created_at = updated_at = now); everything else is taken
// from the spec as given. The committed element is returned.
func (s *Service) Create(ctx context.Context, spec *models.Element) (*models.Element, error) {
	if !models.ValidKind(spec.Kind) {
		return nil, fmt.Errorf("invalid element kind %q", spec.Kind)
	}
	if spec.ParticipantID == "" {
		return nil, fmt.Errorf("element has no owning participant")
	}

	e := spec.Clone()
	e.ID = uuid.New().String()
	now := s.now().UnixMilli()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.storage.InsertElement(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create element: %w", err)
	}

	s.logger.Debug("element created",
		"element_id", e.ID,
		"kind", string(e.Kind),
		"participant_id", e.ParticipantID)

	return e, nil
}

// Update applies a partial update: only the fields present in the patch
// are overwritten, updated_at is stamped with the commit time. A patch
// racing a committed delete fails with ErrElementNotFound and never
// resurrects the element.
func (s *Service) Update(ctx context.Context, id string, patch *models.ElementPatch) (*models.Element, error) {
	if patch == nil || patch.Empty() {
		return s.storage.GetElement(ctx, id)
	}

	e, err := s.storage.PatchElement(ctx, id, patch, s.now().UnixMilli())
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Delete removes an element permanently. Any participant may delete any
// element; there is no ownership restriction.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteElement(ctx, id); err != nil {
		return err
	}

	s.logger.Debug("element deleted", "element_id", id)
	return nil
}

// List returns every element on the canvas in creation order
func (s *Service) List(ctx context.Context) ([]*models.Element, error) {
	elements, err := s.storage.ListElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return elements, nil
}
