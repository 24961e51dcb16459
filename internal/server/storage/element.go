package storage

import (
	"context"

	"github.com/ubohub-bot/whiteboard/internal/models"
)

// ElementStorage defines the interface for canvas element persistence.
// The implementation must serialize concurrent writes to one element so
// that last-write-wins is determined by commit order, not by comparing
// application timestamps.
type ElementStorage interface {
	// InsertElement persists a new element with all fields already stamped
	InsertElement(ctx context.Context, e *models.Element) error

	// PatchElement overwrites only the fields present in the patch and
	// stamps updated_at, returning the element as committed.
	// Returns ErrElementNotFound if the element does not exist (including
	// an update racing a delete that already committed).
	PatchElement(ctx context.Context, id string, patch *models.ElementPatch, updatedAt int64) (*models.Element, error)

	// DeleteElement removes the element permanently.
	// Returns ErrElementNotFound if the element does not exist.
	DeleteElement(ctx context.Context, id string) error

	// GetElement retrieves a single element by id.
	// Returns ErrElementNotFound if the element does not exist.
	GetElement(ctx context.Context, id string) (*models.Element, error)

	// ListElements retrieves every element on the canvas in creation order.
	// Returns an empty slice for an empty canvas.
	ListElements(ctx context.Context) ([]*models.Element, error)
}
