package models

// ElementKind discriminates the drawable object types
type ElementKind string

// Element kinds supported on the canvas
const (
	KindRectangle ElementKind = "rectangle"
	KindCircle    ElementKind = "circle"
	KindLine      ElementKind = "line"
	KindDrawing   ElementKind = "drawing" // freehand stroke
	KindSticky    ElementKind = "sticky"
	KindText      ElementKind = "text"
)

// ValidKind reports whether k is one of the supported element kinds
func ValidKind(k ElementKind) bool {
	switch k {
	case KindRectangle, KindCircle, KindLine, KindDrawing, KindSticky, KindText:
		return true
	}
	return false
}

// Element represents one persisted drawable object on the shared canvas.
// Kind is immutable after creation and UpdatedAt never precedes CreatedAt.
// Optional fields are nil when they do not apply to the kind; nothing
// beyond optionality is enforced.
type Element struct {
	ID            string      `json:"id"`   // unique identifier (UUID)
	Kind          ElementKind `json:"kind"` // immutable after creation
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	Width         *float64    `json:"width,omitempty"`
	Height        *float64    `json:"height,omitempty"`
	Rotation      *float64    `json:"rotation,omitempty"`
	FillColor     *string     `json:"fill_color,omitempty"`
	StrokeColor   *string     `json:"stroke_color,omitempty"`
	StrokeWidth   *float64    `json:"stroke_width,omitempty"`
	Points        []float64   `json:"points,omitempty"` // flat x,y pairs for freehand drawings
	Text          *string     `json:"text,omitempty"`
	FontSize      *float64    `json:"font_size,omitempty"`
	ParticipantID string      `json:"participant_id"` // creator
	CreatedAt     int64       `json:"created_at"`     // Unix milliseconds
	UpdatedAt     int64       `json:"updated_at"`     // Unix milliseconds
}

// Clone creates a deep copy of the element
func (e *Element) Clone() *Element {
	c := *e
	c.Width = clonePtr(e.Width)
	c.Height = clonePtr(e.Height)
	c.Rotation = clonePtr(e.Rotation)
	c.FillColor = clonePtr(e.FillColor)
	c.StrokeColor = clonePtr(e.StrokeColor)
	c.StrokeWidth = clonePtr(e.StrokeWidth)
	c.Text = clonePtr(e.Text)
	c.FontSize = clonePtr(e.FontSize)
	if e.Points != nil {
		c.Points = make([]float64, len(e.Points))
		copy(c.Points, e.Points)
	}
	return &c
}

// ElementPatch represents a partial update to an element.
// Nil fields are left untouched; present fields are blindly overwritten
// (last write wins, no merge of concurrent patches).
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

// Apply overwrites the element's fields that are present in the patch
func (p *ElementPatch) Apply(e *Element) {
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = clonePtr(p.Width)
	}
	if p.Height != nil {
		e.Height = clonePtr(p.Height)
	}
	if p.Rotation != nil {
		e.Rotation = clonePtr(p.Rotation)
	}
	if p.FillColor != nil {
		e.FillColor = clonePtr(p.FillColor)
	}
	if p.StrokeColor != nil {
		e.StrokeColor = clonePtr(p.StrokeColor)
	}
	if p.StrokeWidth != nil {
		e.StrokeWidth = clonePtr(p.StrokeWidth)
	}
	if p.Points != nil {
		e.Points = make([]float64, len(p.Points))
		copy(e.Points, p.Points)
	}
	if p.Text != nil {
		e.Text = clonePtr(p.Text)
	}
	if p.FontSize != nil {
		e.FontSize = clonePtr(p.FontSize)
	}
}

// Empty reports whether the patch touches no fields
func (p *ElementPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.FillColor == nil && p.StrokeColor == nil &&
		p.StrokeWidth == nil && p.Points == nil && p.Text == nil && p.FontSize == nil
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
