package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/board"
	"github.com/ubohub-bot/whiteboard/internal/server/presence"
	"github.com/ubohub-bot/whiteboard/internal/server/registry"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

// Snapshotter recomputes the filtered view delivered to one subscriber.
// Nothing is cached: elements are read from the store and the presence
// and cursor freshness windows are evaluated at build time, so a
// snapshot built later always reflects later decay.
type Snapshotter struct {
	registry *registry.Service
	presence *presence.Tracker
	board    *board.Service
	now      func() time.Time
}

// NewSnapshotter creates a snapshotter over the three collections
func NewSnapshotter(reg *registry.Service, pres *presence.Tracker, b *board.Service) *Snapshotter {
	return &Snapshotter{
		registry: reg,
		presence: pres,
		board:    b,
		now:      time.Now,
	}
}

// Build computes a fresh snapshot for the given subscriber. The
// subscriber's own cursor is excluded; everything else is shared state.
func (s *Snapshotter) Build(ctx context.Context, selfID string) (*api.Snapshot, error) {
	elements, err := s.board.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read elements: %w", err)
	}

	participants, err := s.registry.ActiveParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	cursors := s.presence.LiveCursors()

	snap := &api.Snapshot{
		Elements:     make([]api.Element, 0, len(elements)),
		Participants: make([]api.Participant, 0, len(participants)),
		Cursors:      make([]api.Cursor, 0, len(cursors)),
		At:           s.now().UnixMilli(),
	}

	for _, e := range elements {
		snap.Elements = append(snap.Elements, toAPIElement(e))
	}
	for _, p := range participants {
		snap.Participants = append(snap.Participants, toAPIParticipant(p))
	}
	for _, c := range cursors {
		if c.ParticipantID == selfID {
			continue
		}
		snap.Cursors = append(snap.Cursors, toAPICursor(c))
	}

	return snap, nil
}

func toAPIElement(e *models.Element) api.Element {
	return api.Element{
		ID:            e.ID,
		Kind:          string(e.Kind),
		X:             e.X,
		Y:             e.Y,
		Width:         e.Width,
		Height:        e.Height,
		Rotation:      e.Rotation,
		FillColor:     e.FillColor,
		StrokeColor:   e.StrokeColor,
		StrokeWidth:   e.StrokeWidth,
		Points:        e.Points,
		Text:          e.Text,
		FontSize:      e.FontSize,
		ParticipantID: e.ParticipantID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toAPIParticipant(p *models.Participant) api.Participant {
	return api.Participant{
		ID:           p.ID,
		Username:     p.Username,
		Color:        p.Color,
		LastActiveAt: p.LastActiveAt,
	}
}

func toAPICursor(c models.Cursor) api.Cursor {
	return api.Cursor{
		ParticipantID: c.ParticipantID,
		X:             c.X,
		Y:             c.Y,
		LastSeenAt:    c.LastSeenAt,
	}
}

func toModelElement(e *api.Element) *models.Element {
	return &models.Element{
		ID:            e.ID,
		Kind:          models.ElementKind(e.Kind),
		X:             e.X,
		Y:             e.Y,
		Width:         e.Width,
		Height:        e.Height,
		Rotation:      e.Rotation,
		FillColor:     e.FillColor,
		StrokeColor:   e.StrokeColor,
		StrokeWidth:   e.StrokeWidth,
		Points:        e.Points,
		Text:          e.Text,
		FontSize:      e.FontSize,
		ParticipantID: e.ParticipantID,
	}
}

func toModelPatch(p *api.ElementPatch) *models.ElementPatch {
	return &models.ElementPatch{
		X:           p.X,
		Y:           p.Y,
		Width:       p.Width,
		Height:      p.Height,
		Rotation:    p.Rotation,
		FillColor:   p.FillColor,
		StrokeColor: p.StrokeColor,
		StrokeWidth: p.StrokeWidth,
		Points:      p.Points,
		Text:        p.Text,
		FontSize:    p.FontSize,
	}
}
