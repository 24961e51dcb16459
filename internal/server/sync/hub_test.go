package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/internal/server/registry"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

type testServer struct {
	registry *registry.Service
	hub      *Hub
	srv      *httptest.Server
}

func setupTestHub(t *testing.T) *testServer {
	t.Helper()

	reg, pres, b := setupTestEngine(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger, reg, pres, b, NewDispatcher())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{registry: reg, hub: hub, srv: srv}
}

func (ts *testServer) connect(t *testing.T, participantID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/v1/ws?participant_id=" + participantID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// nextSnapshot reads server messages until a snapshot matching the
// predicate arrives
func nextSnapshot(t *testing.T, conn *websocket.Conn, match func(*api.Snapshot) bool) *api.Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for time.Now().Before(deadline) {
		var msg api.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == api.MsgSnapshot && match(msg.Snapshot) {
			return msg.Snapshot
		}
	}

	t.Fatal("no matching snapshot before deadline")
	return nil
}

// nextAck reads server messages until the ack for the given seq arrives
func nextAck(t *testing.T, conn *websocket.Conn, seq int64) *api.Ack {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for time.Now().Before(deadline) {
		var msg api.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == api.MsgAck && msg.Ack.Seq == seq {
			return msg.Ack
		}
	}

	t.Fatal("no ack before deadline")
	return nil
}

func TestHub_RejectsUnknownParticipant(t *testing.T) {
	ts := setupTestHub(t)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/v1/ws?participant_id=unknown"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHub_InitialSnapshotOnConnect(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)

	conn := ts.connect(t, alice.ID)

	snap := nextSnapshot(t, conn, func(s *api.Snapshot) bool { return true })
	assert.Empty(t, snap.Elements)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "alice", snap.Participants[0].Username)
}

func TestHub_EndToEndCreateUpdate(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	bob, err := ts.registry.Resolve(ctx, "bob")
	require.NoError(t, err)

	connA := ts.connect(t, alice.ID)
	connB := ts.connect(t, bob.ID)

	// client A creates a rectangle at (10,10) sized 100x50
	w, h := 100.0, 50.0
	require.NoError(t, connA.WriteJSON(&api.ClientMessage{
		Type: api.MsgCreate,
		Seq:  1,
		Element: &api.Element{
			Kind:   "rectangle",
			X:      10,
			Y:      10,
			Width:  &w,
			Height: &h,
		},
	}))

	ack := nextAck(t, connA, 1)
	require.Empty(t, ack.Error)
	elementID := ack.ElementID
	require.NotEmpty(t, elementID)

	// client B's next snapshot includes exactly that rectangle
	snapB := nextSnapshot(t, connB, func(s *api.Snapshot) bool {
		return len(s.Elements) == 1
	})
	created := snapB.Elements[0]
	assert.Equal(t, elementID, created.ID)
	assert.Equal(t, "rectangle", created.Kind)
	assert.Equal(t, 10.0, created.X)
	assert.Equal(t, 100.0, *created.Width)
	assert.Equal(t, 50.0, *created.Height)
	assert.Equal(t, alice.ID, created.ParticipantID)

	// client B drags it to (30,30)
	x, y := 30.0, 30.0
	require.NoError(t, connB.WriteJSON(&api.ClientMessage{
		Type:  api.MsgUpdate,
		Seq:   1,
		ID:    elementID,
		Patch: &api.ElementPatch{X: &x, Y: &y},
	}))
	ackB := nextAck(t, connB, 1)
	require.Empty(t, ackB.Error)

	// client A's next snapshot shows the moved rectangle with
	// updated_at advanced and everything else unchanged
	snapA := nextSnapshot(t, connA, func(s *api.Snapshot) bool {
		return len(s.Elements) == 1 && s.Elements[0].X == 30
	})
	moved := snapA.Elements[0]
	assert.Equal(t, 30.0, moved.Y)
	assert.Equal(t, 100.0, *moved.Width)
	assert.Equal(t, 50.0, *moved.Height)
	assert.Equal(t, created.CreatedAt, moved.CreatedAt)
	assert.GreaterOrEqual(t, moved.UpdatedAt, created.UpdatedAt)
}

func TestHub_DeletePropagates(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	bob, err := ts.registry.Resolve(ctx, "bob")
	require.NoError(t, err)

	connA := ts.connect(t, alice.ID)
	connB := ts.connect(t, bob.ID)

	require.NoError(t, connA.WriteJSON(&api.ClientMessage{
		Type:    api.MsgCreate,
		Seq:     1,
		Element: &api.Element{Kind: "sticky", X: 5, Y: 5},
	}))
	ack := nextAck(t, connA, 1)
	require.Empty(t, ack.Error)

	nextSnapshot(t, connB, func(s *api.Snapshot) bool { return len(s.Elements) == 1 })

	// any participant may delete any element
	require.NoError(t, connB.WriteJSON(&api.ClientMessage{
		Type: api.MsgDelete,
		Seq:  2,
		ID:   ack.ElementID,
	}))
	delAck := nextAck(t, connB, 2)
	require.Empty(t, delAck.Error)

	nextSnapshot(t, connA, func(s *api.Snapshot) bool { return len(s.Elements) == 0 })
}

func TestHub_UpdateAfterDeleteAcksNotFound(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	conn := ts.connect(t, alice.ID)

	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Type:    api.MsgCreate,
		Seq:     1,
		Element: &api.Element{Kind: "circle"},
	}))
	ack := nextAck(t, conn, 1)
	require.Empty(t, ack.Error)

	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Type: api.MsgDelete, Seq: 2, ID: ack.ElementID,
	}))
	require.Empty(t, nextAck(t, conn, 2).Error)

	// the losing update is a no-op failure scoped to that mutation
	x := 1.0
	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Type: api.MsgUpdate, Seq: 3, ID: ack.ElementID,
		Patch: &api.ElementPatch{X: &x},
	}))
	assert.Equal(t, "element not found", nextAck(t, conn, 3).Error)

	// the session survives the failure
	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Type:    api.MsgCreate,
		Seq:     4,
		Element: &api.Element{Kind: "line"},
	}))
	assert.Empty(t, nextAck(t, conn, 4).Error)
}

func TestHub_CursorFlowsToOtherClientsOnly(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	bob, err := ts.registry.Resolve(ctx, "bob")
	require.NoError(t, err)

	connA := ts.connect(t, alice.ID)
	connB := ts.connect(t, bob.ID)

	require.NoError(t, connA.WriteJSON(&api.ClientMessage{
		Type: api.MsgCursor, X: 42, Y: 24,
	}))

	// bob sees alice's cursor
	snapB := nextSnapshot(t, connB, func(s *api.Snapshot) bool {
		return len(s.Cursors) == 1
	})
	assert.Equal(t, alice.ID, snapB.Cursors[0].ParticipantID)
	assert.Equal(t, 42.0, snapB.Cursors[0].X)

	// alice never sees her own cursor; trigger a delivery and check
	require.NoError(t, connB.WriteJSON(&api.ClientMessage{
		Type: api.MsgCursor, X: 7, Y: 8,
	}))
	snapA := nextSnapshot(t, connA, func(s *api.Snapshot) bool {
		return len(s.Cursors) == 1
	})
	assert.Equal(t, bob.ID, snapA.Cursors[0].ParticipantID)
}

func TestHub_SlowClientTornDown(t *testing.T) {
	oldTimeout := writeTimeout
	writeTimeout = 200 * time.Millisecond
	defer func() { writeTimeout = oldTimeout }()

	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)

	// this client never reads; its socket buffer will fill up
	slow := ts.connect(t, alice.ID)

	// a drawing large enough that snapshots overwhelm the kernel buffers
	points := make([]float64, 1<<17)
	for i := range points {
		points[i] = float64(i) + 0.5
	}
	_, err = ts.hub.board.Create(ctx, &models.Element{
		Kind:          models.KindDrawing,
		Points:        points,
		ParticipantID: alice.ID,
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
				ts.hub.dispatcher.Publish(TopicElements)
			}
		}
	}()

	// once the write deadline trips, the session must fully unwind: the
	// write pump closes the connection, the read pump fails out, and the
	// subscription is removed
	require.Eventually(t, func() bool {
		ts.hub.dispatcher.mu.Lock()
		defer ts.hub.dispatcher.mu.Unlock()
		return len(ts.hub.dispatcher.subs) == 0
	}, 15*time.Second, 50*time.Millisecond, "stalled subscriber was never torn down")

	// the server closed the connection; draining it ends in a close
	// error, not a read timeout against a still-open socket
	require.NoError(t, slow.SetReadDeadline(time.Now().Add(5*time.Second)))
	var readErr error
	for readErr == nil {
		_, _, readErr = slow.ReadMessage()
	}
	var nerr net.Error
	if errors.As(readErr, &nerr) && nerr.Timeout() {
		t.Fatal("connection left open after write pump exit")
	}
}

func TestHub_AckPrecedesSnapshotWithElement(t *testing.T) {
	ts := setupTestHub(t)
	ctx := context.Background()

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	conn := ts.connect(t, alice.ID)

	// drain the connect-time snapshot so only the create's own
	// deliveries remain
	nextSnapshot(t, conn, func(s *api.Snapshot) bool { return true })

	require.NoError(t, conn.WriteJSON(&api.ClientMessage{
		Type:    api.MsgCreate,
		Seq:     1,
		Element: &api.Element{Kind: "rectangle", X: 1, Y: 2},
	}))

	// the issuing client must see its ack before any snapshot that
	// already contains the element
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg api.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == api.MsgAck && msg.Ack.Seq == 1 {
			require.Empty(t, msg.Ack.Error)
			return
		}
		if msg.Type == api.MsgSnapshot {
			require.Empty(t, msg.Snapshot.Elements,
				"snapshot delivered the element before its ack")
		}
	}
}

func TestHub_TickRepublishesTimeDecay(t *testing.T) {
	ts := setupTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ts.hub.Run(ctx)

	alice, err := ts.registry.Resolve(ctx, "alice")
	require.NoError(t, err)
	conn := ts.connect(t, alice.ID)

	// with no writes at all, the tick still delivers snapshots
	first := nextSnapshot(t, conn, func(s *api.Snapshot) bool { return true })
	second := nextSnapshot(t, conn, func(s *api.Snapshot) bool {
		return s.At > first.At
	})
	assert.Greater(t, second.At, first.At)
}
