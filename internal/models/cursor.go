package models

// Cursor represents a participant's last reported pointer position.
// Each participant owns exactly one cursor slot; a new report overwrites
// the previous position, never appends. A cursor older than the presence
// tracker's freshness window is excluded from snapshots without an
// explicit delete.
type Cursor struct {
	ParticipantID string  `json:"participant_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	LastSeenAt    int64   `json:"last_seen_at"` // Unix milliseconds of the last report
}
