package sync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ubohub-bot/whiteboard/internal/server/board"
	"github.com/ubohub-bot/whiteboard/internal/server/presence"
	"github.com/ubohub-bot/whiteboard/internal/server/registry"
	"github.com/ubohub-bot/whiteboard/internal/server/storage"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

// TickInterval is how often presence and cursor subscribers are
// re-notified so that freshness windows are re-evaluated with no writes.
const TickInterval = time.Second

const ackBuffer = 64

// writeTimeout bounds every websocket write. A variable so tests can
// exercise slow-client teardown without waiting out the full deadline.
var writeTimeout = 10 * time.Second

// Hub owns the websocket side of the synchronization engine: it applies
// inbound mutations, acknowledges them to the issuing client, and
// delivers recomputed snapshots to every affected subscriber.
type Hub struct {
	logger     *slog.Logger
	registry   *registry.Service
	presence   *presence.Tracker
	board      *board.Service
	dispatcher *Dispatcher
	snapshots  *Snapshotter
	upgrader   websocket.Upgrader
}

// NewHub creates a hub over the three collections and a dispatcher
func NewHub(logger *slog.Logger, reg *registry.Service, pres *presence.Tracker, b *board.Service, d *Dispatcher) *Hub {
	return &Hub{
		logger:     logger,
		registry:   reg,
		presence:   pres,
		board:      b,
		dispatcher: d,
		snapshots:  NewSnapshotter(reg, pres, b),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Dispatcher returns the hub's dispatcher so other writers (for example
// the HTTP join handler) can publish changes.
func (h *Hub) Dispatcher() *Dispatcher {
	return h.dispatcher
}

// Run drives the periodic tick until the context is cancelled. The tick
// republishes the time-decaying collections so stale cursors and
// participants disappear from snapshots by mere passage of time.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.dispatcher.Publish(TopicParticipants | TopicCursors)
		}
	}
}

// client is one connected websocket subscriber
type client struct {
	hub           *Hub
	conn          *websocket.Conn
	participantID string
	sub           *Subscription
	acks          chan api.Ack
	done          chan struct{}
}

// HandleWS upgrades the connection and serves it until the client goes
// away. The participant must have joined first (participant_id query
// parameter); an unknown id is rejected before the upgrade.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		http.Error(w, "missing participant_id", http.StatusBadRequest)
		return
	}

	if _, err := h.registry.Lookup(ctx, participantID); err != nil {
		if errors.Is(err, storage.ErrParticipantNotFound) {
			http.Error(w, "unknown participant", http.StatusNotFound)
			return
		}
		h.logger.Error("participant lookup failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:           h,
		conn:          conn,
		participantID: participantID,
		sub:           h.dispatcher.Subscribe(TopicAll),
		acks:          make(chan api.Ack, ackBuffer),
		done:          make(chan struct{}),
	}

	h.logger.Info("client connected", "participant_id", participantID)

	// connecting counts as activity
	if err := h.registry.TouchActivity(context.WithoutCancel(ctx), participantID); err != nil {
		h.logger.Warn("failed to touch activity on connect", "error", err)
	}
	h.dispatcher.Publish(TopicParticipants)

	// prime the subscription so the write pump delivers an initial snapshot
	h.dispatcher.Publish(TopicAll)

	go c.writePump()
	c.readPump()

	close(c.done)
	h.dispatcher.Unsubscribe(c.sub)
	conn.Close()
	h.logger.Info("client disconnected", "participant_id", participantID)
}

// readPump decodes mutations until the connection closes. Every failure
// is scoped to one mutation: a rejected write is acked with an error and
// the session keeps running.
func (c *client) readPump() {
	// the server has no client-local context: mutations use Background so
	// a disconnect between read and commit cannot half-apply a write
	ctx := context.Background()

	for {
		var msg api.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Warn("websocket read failed",
					"participant_id", c.participantID,
					"error", err)
			}
			return
		}

		c.handleMessage(ctx, &msg)
	}
}

func (c *client) handleMessage(ctx context.Context, msg *api.ClientMessage) {
	h := c.hub

	switch msg.Type {
	case api.MsgCursor:
		// hot path: no ack, no logging
		h.presence.Report(c.participantID, msg.X, msg.Y)
		h.dispatcher.Publish(TopicCursors)

	case api.MsgHeartbeat:
		if err := h.registry.TouchActivity(ctx, c.participantID); err != nil {
			h.logger.Warn("heartbeat failed",
				"participant_id", c.participantID,
				"error", err)
			return
		}
		h.dispatcher.Publish(TopicParticipants)

	case api.MsgCreate:
		if msg.Element == nil {
			c.ack(api.Ack{Seq: msg.Seq, Error: "create requires an element"})
			return
		}
		spec := toModelElement(msg.Element)
		spec.ParticipantID = c.participantID
		created, err := h.board.Create(ctx, spec)
		if err != nil {
			c.ack(api.Ack{Seq: msg.Seq, Error: err.Error()})
			return
		}
		c.ack(api.Ack{Seq: msg.Seq, ElementID: created.ID})
		h.dispatcher.Publish(TopicElements)

	case api.MsgUpdate:
		if msg.Patch == nil {
			c.ack(api.Ack{Seq: msg.Seq, Error: "update requires a patch"})
			return
		}
		if _, err := h.board.Update(ctx, msg.ID, toModelPatch(msg.Patch)); err != nil {
			c.ack(api.Ack{Seq: msg.Seq, ElementID: msg.ID, Error: ackError(err)})
			return
		}
		c.ack(api.Ack{Seq: msg.Seq, ElementID: msg.ID})
		h.dispatcher.Publish(TopicElements)

	case api.MsgDelete:
		if err := h.board.Delete(ctx, msg.ID); err != nil {
			c.ack(api.Ack{Seq: msg.Seq, ElementID: msg.ID, Error: ackError(err)})
			return
		}
		c.ack(api.Ack{Seq: msg.Seq, ElementID: msg.ID})
		h.dispatcher.Publish(TopicElements)

	default:
		c.ack(api.Ack{Seq: msg.Seq, Error: "unknown message type: " + msg.Type})
	}
}

// ack queues an acknowledgement for the write pump; it blocks only if
// the client has stopped draining its connection entirely
func (c *client) ack(a api.Ack) {
	select {
	case c.acks <- a:
	case <-c.done:
	}
}

// writePump is the only goroutine writing to the connection. Snapshot
// wakeups are coalesced: the pump recomputes one fresh snapshot per
// wakeup, so a burst of writes costs one delivery and the latest state
// always wins.
//
// Closing the connection on exit is what unwinds the whole session: a
// write failure here makes readPump's next read fail, readPump returns,
// and HandleWS runs the cleanup. Without it a client that stops reading
// would keep readPump alive until the ack buffer filled and wedged it.
func (c *client) writePump() {
	defer c.conn.Close()

	ctx := context.Background()

	for {
		select {
		case <-c.done:
			return

		case a := <-c.acks:
			if err := c.write(&api.ServerMessage{Type: api.MsgAck, Ack: &a}); err != nil {
				return
			}

		case <-c.sub.Ready():
			// queued acks go out first: the issuing client reconciles a
			// mutation before it sees the snapshot containing it
			if !c.flushAcks() {
				return
			}
			c.sub.Take()
			snap, err := c.hub.snapshots.Build(ctx, c.participantID)
			if err != nil {
				c.hub.logger.Error("snapshot build failed",
					"participant_id", c.participantID,
					"error", err)
				continue
			}
			if err := c.write(&api.ServerMessage{Type: api.MsgSnapshot, Snapshot: snap}); err != nil {
				return
			}
		}
	}
}

// flushAcks drains every queued ack onto the wire. Reports false when a
// write failed and the pump should stop.
func (c *client) flushAcks() bool {
	for {
		select {
		case a := <-c.acks:
			if err := c.write(&api.ServerMessage{Type: api.MsgAck, Ack: &a}); err != nil {
				return false
			}
		default:
			return true
		}
	}
}

func (c *client) write(msg *api.ServerMessage) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.hub.logger.Warn("websocket write failed",
			"participant_id", c.participantID,
			"error", err)
		return err
	}
	return nil
}

// ackError maps storage errors onto wire error strings
func ackError(err error) string {
	if errors.Is(err, storage.ErrElementNotFound) {
		return "element not found"
	}
	return err.Error()
}
