package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubohub-bot/whiteboard/internal/models"
	"github.com/ubohub-bot/whiteboard/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRegistry records resolves and returns a canned participant
type fakeRegistry struct {
	resolved []string
	fail     bool
}

func (f *fakeRegistry) Resolve(ctx context.Context, username string) (*models.Participant, error) {
	if f.fail {
		return nil, assert.AnError
	}
	f.resolved = append(f.resolved, username)
	return &models.Participant{
		ID:           "p-1",
		Username:     username,
		Color:        "#ef4444",
		LastActiveAt: 1000,
	}, nil
}

// fakePublisher counts participant-change publications
type fakePublisher struct {
	published int
}

func (f *fakePublisher) PublishParticipants() { f.published++ }

func doJoin(t *testing.T, h *JoinHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/join", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Join(w, req)
	return w
}

func TestJoinHandler_Join(t *testing.T) {
	reg := &fakeRegistry{}
	pub := &fakePublisher{}
	h := NewJoinHandler(setupTestLogger(), reg, pub)

	w := doJoin(t, h, `{"username":"alice"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.JoinResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "p-1", resp.Participant.ID)
	assert.Equal(t, "alice", resp.Participant.Username)
	assert.Equal(t, "#ef4444", resp.Participant.Color)

	assert.Equal(t, 1, pub.published)
}

func TestJoinHandler_TrimsUsername(t *testing.T) {
	reg := &fakeRegistry{}
	h := NewJoinHandler(setupTestLogger(), reg, &fakePublisher{})

	w := doJoin(t, h, `{"username":"  alice  "}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, reg.resolved, 1)
	assert.Equal(t, "alice", reg.resolved[0])
}

func TestJoinHandler_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty username", body: `{"username":""}`},
		{name: "whitespace only", body: `{"username":"   "}`},
		{name: "too long", body: `{"username":"` + strings.Repeat("a", 40) + `"}`},
		{name: "malformed json", body: `{"username"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{}
			pub := &fakePublisher{}
			h := NewJoinHandler(setupTestLogger(), reg, pub)

			w := doJoin(t, h, tt.body)

			// rejected synchronously, before anything reaches the store
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, reg.resolved)
			assert.Zero(t, pub.published)

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestJoinHandler_MethodNotAllowed(t *testing.T) {
	h := NewJoinHandler(setupTestLogger(), &fakeRegistry{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/join", nil)
	w := httptest.NewRecorder()
	h.Join(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestJoinHandler_RegistryError(t *testing.T) {
	h := NewJoinHandler(setupTestLogger(), &fakeRegistry{fail: true}, &fakePublisher{})

	w := doJoin(t, h, `{"username":"alice"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
