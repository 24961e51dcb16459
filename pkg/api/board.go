package api

// JoinRequest represents a request to join the board with a display name
type JoinRequest struct {
	Username string `json:"username"` // display name, trimmed, 1-32 characters
}

// JoinResponse represents a successful join; re-joining with the same
// name returns the same participant
type JoinResponse struct {
	Participant Participant `json:"participant"`
}

// ErrorResponse represents an error reply
type ErrorResponse struct {
	Error   string `json:"error"`             // error description
	Message string `json:"message,omitempty"` // optional detail
}

// Participant represents a registered display-name identity.
// Color is assigned from a fixed palette at creation and never changes.
type Participant struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Color        string `json:"color"`
	LastActiveAt int64  `json:"last_active_at"` // Unix milliseconds
}

// Cursor represents a participant's last reported pointer position
type Cursor struct {
	ParticipantID string  `json:"participant_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	LastSeenAt    int64   `json:"last_seen_at"` // Unix milliseconds
}

// Element represents one drawable object on the shared canvas.
// Optional fields are omitted when they do not apply to the element kind.
type Element struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"` // rectangle, circle, line, drawing, sticky, text
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Width         *float64  `json:"width,omitempty"`
	Height        *float64  `json:"height,omitempty"`
	Rotation      *float64  `json:"rotation,omitempty"`
	FillColor     *string   `json:"fill_color,omitempty"`
	StrokeColor   *string   `json:"stroke_color,omitempty"`
	StrokeWidth   *float64  `json:"stroke_width,omitempty"`
	Points        []float64 `json:"points,omitempty"` // flat x,y pairs for freehand drawings
	Text          *string   `json:"text,omitempty"`
	FontSize      *float64  `json:"font_size,omitempty"`
	ParticipantID string    `json:"participant_id"`
	CreatedAt     int64     `json:"created_at"` // Unix milliseconds
	UpdatedAt     int64     `json:"updated_at"` // Unix milliseconds
}

// ElementPatch represents a partial element update.
// Only the fields present are overwritten; everything else is retained.
type ElementPatch struct {
	X           *float64  `json:"x,omitempty"`
	Y           *float64  `json:"y,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Rotation    *float64  `json:"rotation,omitempty"`
	FillColor   *string   `json:"fill_color,omitempty"`
	StrokeColor *string   `json:"stroke_color,omitempty"`
	StrokeWidth *float64  `json:"stroke_width,omitempty"`
	Points      []float64 `json:"points,omitempty"`
	Text        *string   `json:"text,omitempty"`
	FontSize    *float64  `json:"font_size,omitempty"`
}
