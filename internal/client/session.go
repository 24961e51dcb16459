package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ubohub-bot/whiteboard/internal/client/storage"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

// HeartbeatInterval is how often an idle session pings the server to
// keep its participant inside the activity window.
const HeartbeatInterval = 30 * time.Second

// Conn defines the websocket session operations the client needs
type Conn interface {
	// Send writes one client message to the server
	Send(msg *api.ClientMessage) error

	// Read blocks until the next server message arrives
	Read() (*api.ServerMessage, error)

	// Close closes the connection
	Close() error
}

// pendingOp is one locally issued mutation the server has not yet
// reflected back in a snapshot
type pendingOp struct {
	seq     int64
	typ     string
	element *api.Element  // create payload, carries the temporary id
	id      string        // update/delete target
	patch   *api.ElementPatch
	acked   bool
}

// Session maintains the client's view of the board: the last snapshot
// the server delivered, overlaid with mutations that are still in
// flight. The server state is authoritative; the overlay exists only
// so local edits render without waiting for the round trip.
type Session struct {
	logger *slog.Logger
	conn   Conn
	self   api.Participant
	cache  storage.SnapshotCache // optional, may be nil

	mu       sync.Mutex
	snapshot *api.Snapshot
	pending  []*pendingOp
	nextSeq  int64

	now func() time.Time
}

// NewSession creates a session for the given participant. If cache is
// non-nil, the last persisted snapshot is loaded so the board can be
// painted before the first live snapshot arrives.
func NewSession(logger *slog.Logger, conn Conn, self api.Participant, cache storage.SnapshotCache) *Session {
	s := &Session{
		logger: logger,
		conn:   conn,
		self:   self,
		cache:  cache,
		now:    time.Now,
	}

	if cache != nil {
		snap, err := cache.GetSnapshot()
		switch {
		case err == nil:
			s.snapshot = snap
		case errors.Is(err, storage.ErrSnapshotNotFound):
			// first run, nothing cached yet
		default:
			logger.Warn("Failed to load cached snapshot", "error", err)
		}
	}

	return s
}

// Self returns the participant identity this session joined as
func (s *Session) Self() api.Participant {
	return s.self
}

// Run reads server messages until the connection fails or the context
// is canceled, sending heartbeats in the background. The heartbeat
// goroutine lives exactly as long as Run: it is canceled on return, not
// left ticking until the caller's context ends.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.heartbeatLoop(ctx)

	for {
		msg, err := s.conn.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("session read failed: %w", err)
		}
		s.handleServerMessage(msg)
	}
}

// heartbeatLoop keeps the participant active while the user is idle.
// When the context is canceled it closes the connection so Run's
// blocking read returns.
func (s *Session) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
			return
		case <-ticker.C:
			if err := s.conn.Send(&api.ClientMessage{Type: api.MsgHeartbeat}); err != nil {
				s.logger.Warn("Failed to send heartbeat", "error", err)
			}
		}
	}
}

// CreateElement submits a new element and returns the temporary id it
// renders under until the server confirms the create
func (s *Session) CreateElement(el api.Element) (string, error) {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq

	el.ID = fmt.Sprintf("pending-%d", seq)
	el.ParticipantID = s.self.ID
	nowMs := s.now().UnixMilli()
	el.CreatedAt = nowMs
	el.UpdatedAt = nowMs

	op := &pendingOp{seq: seq, typ: api.MsgCreate, element: &el}
	s.pending = append(s.pending, op)
	s.mu.Unlock()

	msg := &api.ClientMessage{Type: api.MsgCreate, Seq: seq, Element: &el}
	if err := s.conn.Send(msg); err != nil {
		s.dropPending(seq)
		return "", fmt.Errorf("failed to send create: %w", err)
	}

	return el.ID, nil
}

// UpdateElement submits a partial update for an existing element
func (s *Session) UpdateElement(id string, patch api.ElementPatch) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	op := &pendingOp{seq: seq, typ: api.MsgUpdate, id: id, patch: &patch}
	s.pending = append(s.pending, op)
	s.mu.Unlock()

	msg := &api.ClientMessage{Type: api.MsgUpdate, Seq: seq, ID: id, Patch: &patch}
	if err := s.conn.Send(msg); err != nil {
		s.dropPending(seq)
		return fmt.Errorf("failed to send update: %w", err)
	}

	return nil
}

// DeleteElement submits an element removal
func (s *Session) DeleteElement(id string) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	op := &pendingOp{seq: seq, typ: api.MsgDelete, id: id}
	s.pending = append(s.pending, op)
	s.mu.Unlock()

	msg := &api.ClientMessage{Type: api.MsgDelete, Seq: seq, ID: id}
	if err := s.conn.Send(msg); err != nil {
		s.dropPending(seq)
		return fmt.Errorf("failed to send delete: %w", err)
	}

	return nil
}

// MoveCursor reports the local pointer position. Cursor moves are not
// acknowledged and carry no pending state.
func (s *Session) MoveCursor(x, y float64) error {
	msg := &api.ClientMessage{Type: api.MsgCursor, X: x, Y: y}
	if err := s.conn.Send(msg); err != nil {
		return fmt.Errorf("failed to send cursor: %w", err)
	}
	return nil
}

// View returns the board as it should render right now: the last
// server snapshot with all still-pending local mutations applied on
// top, in issue order
func (s *Session) View() *api.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &api.Snapshot{
		Elements:     []api.Element{},
		Participants: []api.Participant{},
		Cursors:      []api.Cursor{},
	}

	if s.snapshot != nil {
		view.Elements = append(view.Elements, s.snapshot.Elements...)
		view.Participants = append(view.Participants, s.snapshot.Participants...)
		view.Cursors = append(view.Cursors, s.snapshot.Cursors...)
		view.At = s.snapshot.At
	}

	for _, op := range s.pending {
		switch op.typ {
		case api.MsgCreate:
			if indexOfElement(view.Elements, op.element.ID) == -1 {
				view.Elements = append(view.Elements, *op.element)
			}
		case api.MsgUpdate:
			if i := indexOfElement(view.Elements, op.id); i != -1 {
				applyPatch(&view.Elements[i], op.patch)
			}
		case api.MsgDelete:
			if i := indexOfElement(view.Elements, op.id); i != -1 {
				view.Elements = append(view.Elements[:i], view.Elements[i+1:]...)
			}
		}
	}

	return view
}

// handleServerMessage applies one server push to the session state
func (s *Session) handleServerMessage(msg *api.ServerMessage) {
	switch msg.Type {
	case api.MsgSnapshot:
		if msg.Snapshot == nil {
			s.logger.Warn("Snapshot message without payload")
			return
		}
		s.applySnapshot(msg.Snapshot)
	case api.MsgAck:
		if msg.Ack == nil {
			s.logger.Warn("Ack message without payload")
			return
		}
		s.applyAck(msg.Ack)
	default:
		s.logger.Warn("Unknown server message type", "type", msg.Type)
	}
}

// applySnapshot replaces the authoritative state wholesale. Pending
// ops the server has already acknowledged are dropped: a snapshot
// delivered after an ack always reflects that mutation.
func (s *Session) applySnapshot(snap *api.Snapshot) {
	s.mu.Lock()
	s.snapshot = snap

	remaining := s.pending[:0]
	for _, op := range s.pending {
		if !op.acked {
			remaining = append(remaining, op)
		}
	}
	s.pending = remaining
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveSnapshot(snap); err != nil {
			s.logger.Warn("Failed to cache snapshot", "error", err)
		}
	}
}

// applyAck resolves one in-flight mutation. A rejected mutation is
// discarded immediately so the view stops rendering it; a confirmed
// create adopts the server-assigned id.
func (s *Session) applyAck(ack *api.Ack) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range s.pending {
		if op.seq != ack.Seq {
			continue
		}

		if ack.Error != "" {
			s.logger.Warn("Mutation rejected", "seq", ack.Seq, "error", ack.Error)
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}

		op.acked = true
		if op.typ == api.MsgCreate && ack.ElementID != "" {
			op.element.ID = ack.ElementID
		}
		return
	}

	s.logger.Debug("Ack for unknown sequence", "seq", ack.Seq)
}

// dropPending removes an op that never reached the server
func (s *Session) dropPending(seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range s.pending {
		if op.seq == seq {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// indexOfElement returns the position of id in els, or -1
func indexOfElement(els []api.Element, id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

// applyPatch overwrites the fields the patch carries, leaving the rest
// of the element intact
func applyPatch(el *api.Element, p *api.ElementPatch) {
	if p.X != nil {
		el.X = *p.X
	}
	if p.Y != nil {
		el.Y = *p.Y
	}
	if p.Width != nil {
		el.Width = p.Width
	}
	if p.Height != nil {
		el.Height = p.Height
	}
	if p.Rotation != nil {
		el.Rotation = p.Rotation
	}
	if p.FillColor != nil {
		el.FillColor = p.FillColor
	}
	if p.StrokeColor != nil {
		el.StrokeColor = p.StrokeColor
	}
	if p.StrokeWidth != nil {
		el.StrokeWidth = p.StrokeWidth
	}
	if p.Points != nil {
		el.Points = append([]float64(nil), p.Points...)
	}
	if p.Text != nil {
		el.Text = p.Text
	}
	if p.FontSize != nil {
		el.FontSize = p.FontSize
	}
}
