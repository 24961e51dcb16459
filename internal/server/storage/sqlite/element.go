package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/storage"
)

// InsertElement persists a new element with all fields already stamped
func (s *Storage) InsertElement(ctx context.Context, e *models.Element) error {
	points, err := marshalPoints(e.Points)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO elements (
			id, kind, x, y, width, height, rotation,
			fill_color, stroke_color, stroke_width,
			points, text, font_size,
			participant_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		e.ID,
		string(e.Kind),
		e.X,
		e.Y,
		nullFloat(e.Width),
		nullFloat(e.Height),
		nullFloat(e.Rotation),
		nullString(e.FillColor),
		nullString(e.StrokeColor),
		nullFloat(e.StrokeWidth),
		points,
		nullString(e.Text),
		nullFloat(e.FontSize),
		e.ParticipantID,
		e.CreatedAt,
		e.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert element: %w", err)
	}

	return nil
}

// PatchElement overwrites only the fields present in the patch and stamps
// updated_at. The single-writer connection serializes concurrent patches,
// so the final value of every touched field is the one committed last.
// Returns ErrElementNotFound if the element does not exist; an update that
// lost a race with a delete fails the same way and resurrects nothing.
func (s *Storage) PatchElement(ctx context.Context, id string, patch *models.ElementPatch, updatedAt int64) (*models.Element, error) {
	set := make([]string, 0, 12)
	args := make([]any, 0, 13)

	appendSet := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if patch.X != nil {
		appendSet("x", *patch.X)
	}
	if patch.Y != nil {
		appendSet("y", *patch.Y)
	}
	if patch.Width != nil {
		appendSet("width", *patch.Width)
	}
	if patch.Height != nil {
		appendSet("height", *patch.Height)
	}
	if patch.Rotation != nil {
		appendSet("rotation", *patch.Rotation)
	}
	if patch.FillColor != nil {
		appendSet("fill_color", *patch.FillColor)
	}
	if patch.StrokeColor != nil {
		appendSet("stroke_color", *patch.StrokeColor)
	}
	if patch.StrokeWidth != nil {
		appendSet("stroke_width", *patch.StrokeWidth)
	}
	if patch.Points != nil {
		points, err := marshalPoints(patch.Points)
		if err != nil {
			return nil, err
		}
		appendSet("points", points)
	}
	if patch.Text != nil {
		appendSet("text", *patch.Text)
	}
	if patch.FontSize != nil {
		appendSet("font_size", *patch.FontSize)
	}

	appendSet("updated_at", updatedAt)
	args = append(args, id)

	query := "UPDATE elements SET " + strings.Join(set, ", ") + " WHERE id = ?"

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to patch element: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return nil, storage.ErrElementNotFound
	}

	return s.GetElement(ctx, id)
}

// DeleteElement removes the element permanently
func (s *Storage) DeleteElement(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM elements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrElementNotFound
	}

	return nil
}

// GetElement retrieves a single element by id
func (s *Storage) GetElement(ctx context.Context, id string) (*models.Element, error) {
	query := `
		SELECT id, kind, x, y, width, height, rotation,
		       fill_color, stroke_color, stroke_width,
		       points, text, font_size,
		       participant_id, created_at, updated_at
		FROM elements
		WHERE id = ?
	`

	e, err := scanElement(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrElementNotFound
		}
		return nil, fmt.Errorf("failed to get element: %w", err)
	}

	return e, nil
}

// ListElements retrieves every element on the canvas in creation order
func (s *Storage) ListElements(ctx context.Context) ([]*models.Element, error) {
	query := `
		SELECT id, kind, x, y, width, height, rotation,
		       fill_color, stroke_color, stroke_width,
		       points, text, font_size,
		       participant_id, created_at, updated_at
		FROM elements
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	elements := make([]*models.Element, 0)
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		elements = append(elements, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return elements, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanElement(row scanner) (*models.Element, error) {
	e := &models.Element{}
	var kind string
	var width, height, rotation, strokeWidth, fontSize sql.NullFloat64
	var fillColor, strokeColor, points, text sql.NullString

	err := row.Scan(
		&e.ID,
		&kind,
		&e.X,
		&e.Y,
		&width,
		&height,
		&rotation,
		&fillColor,
		&strokeColor,
		&strokeWidth,
		&points,
		&text,
		&fontSize,
		&e.ParticipantID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = models.ElementKind(kind)
	e.Width = floatPtr(width)
	e.Height = floatPtr(height)
	e.Rotation = floatPtr(rotation)
	e.FillColor = stringPtr(fillColor)
	e.StrokeColor = stringPtr(strokeColor)
	e.StrokeWidth = floatPtr(strokeWidth)
	e.Text = stringPtr(text)
	e.FontSize = floatPtr(fontSize)

	if points.Valid {
		if err := json.Unmarshal([]byte(points.String), &e.Points); err != nil {
			return nil, fmt.Errorf("failed to decode points: %w", err)
		}
	}

	return e, nil
}

// marshalPoints encodes the flat coordinate list as JSON text, NULL when absent
func marshalPoints(points []float64) (any, error) {
	if points == nil {
		return nil, nil
	}
	buf, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode points: %w", err)
	}
	return string(buf), nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
