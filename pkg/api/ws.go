package api

// Client message types sent over the websocket
const (
	MsgCreate    = "create"
	MsgUpdate    = "update"
	MsgDelete    = "delete"
	MsgCursor    = "cursor"
	MsgHeartbeat = "heartbeat"
)

// Server message types sent over the websocket
const (
	MsgSnapshot = "snapshot"
	MsgAck      = "ack"
)

// ClientMessage represents one mutation issued by a client.
// Seq is a client-local sequence number echoed back in the Ack so the
// client can reconcile its optimistic state.
type ClientMessage struct {
	Type    string        `json:"type"`
	Seq     int64         `json:"seq,omitempty"`
	Element *Element      `json:"element,omitempty"` // create: id and timestamps assigned by the server
	ID      string        `json:"id,omitempty"`      // update/delete target
	Patch   *ElementPatch `json:"patch,omitempty"`   // update payload
	X       float64       `json:"x,omitempty"`       // cursor position
	Y       float64       `json:"y,omitempty"`
}

// ServerMessage is the envelope for everything the server pushes
type ServerMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Ack      *Ack      `json:"ack,omitempty"`
}

// Ack confirms (or rejects) a single client mutation.
// It is delivered only to the issuing client.
type Ack struct {
	Seq       int64  `json:"seq"`
	ElementID string `json:"element_id,omitempty"` // server-assigned id for creates
	Error     string `json:"error,omitempty"`
}

// Snapshot is a freshly recomputed, filtered view of the shared state.
// Cursors never include the receiving client's own cursor, and both
// Cursors and Participants are already filtered by freshness at the
// moment of delivery.
type Snapshot struct {
	Elements     []Element     `json:"elements"`
	Participants []Participant `json:"participants"`
	Cursors      []Cursor      `json:"cursors"`
	At           int64         `json:"at"` // Unix milliseconds at snapshot computation
}
