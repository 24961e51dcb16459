// Package presence tracks per-participant cursor positions in memory.
//
// Cursor reports arrive at mouse-move granularity, so the write path is a
// single map assignment under a mutex: O(1), no read-before-write, no
// allocation. Cursors are ephemeral by definition (a restart losing them
// is fine) and decay by age rather than by explicit delete.
package presence

import (
	"sync"
	"time"

	"github.com/ubohub-bot/whiteboard/internal/models"
)

// CursorTTL is how long a cursor stays live after its last report.
// Much shorter than the participant activity window: cursor position is
// high-frequency and cosmetic, so it is safe to drop aggressively, while
// presence should survive longer network hiccups.
const CursorTTL = 5 * time.Second

// Tracker maintains the single live cursor slot per participant
type Tracker struct {
	mu      sync.Mutex
	cursors map[string]models.Cursor
	now     func() time.Time
}

// NewTracker creates an empty cursor tracker
func NewTracker() *Tracker {
	return &Tracker{
		cursors: make(map[string]models.Cursor),
		now:     time.Now,
	}
}

// Report overwrites the participant's cursor slot with the new position
// and the current timestamp. Unconditional upsert: each participant
// exclusively owns exactly one slot, so no conflict is possible.
func (t *Tracker) Report(participantID string, x, y float64) {
	seen := t.now().UnixMilli()

	t.mu.Lock()
	t.cursors[participantID] = models.Cursor{
		ParticipantID: participantID,
		X:             x,
		Y:             y,
		LastSeenAt:    seen,
	}
	t.mu.Unlock()
}

// LiveCursors returns every cursor seen within CursorTTL of now.
// Freshness is computed against the call time, never cached, and stale
// slots are reaped lazily while listing.
func (t *Tracker) LiveCursors() []models.Cursor {
	cutoff := t.now().Add(-CursorTTL).UnixMilli()

	t.mu.Lock()
	defer t.mu.Unlock()

	live := make([]models.Cursor, 0, len(t.cursors))
	for id, c := range t.cursors {
		if c.LastSeenAt < cutoff {
			delete(t.cursors, id)
			continue
		}
		live = append(live, c)
	}

	return live
}
