package models

// Participant represents a registered display-name identity.
// ID and Color are immutable once created; only LastActiveAt is ever
// refreshed. Participants are never deleted: staleness is handled by
// filtering on LastActiveAt, not by removal.
type Participant struct {
	ID           string `json:"id"`             // unique identifier (UUID)
	Username     string `json:"username"`       // unique display name
	Color        string `json:"color"`          // hex color from the fixed palette
	LastActiveAt int64  `json:"last_active_at"` // Unix milliseconds of the last heartbeat
}

// Clone creates a copy of the participant
func (p *Participant) Clone() *Participant {
	c := *p
	return &c
}
