package live

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"live-app/internal/models"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func testConfig() Config {
	return Config{
		InviteTimeout:    30 * time.Second,
		PKDuration:       60 * time.Second,
		StatsInterval:    5 * time.Second,
		DurationTick:     time.Second,
		HeartbeatTimeout: time.Hour,
		PKGiftScoring:    true,
	}
}

func newTestManager(t *testing.T, cfg Config, opts ...Option) (*Manager, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	m := NewManager(cfg, append([]Option{WithClock(clk)}, opts...)...)
	t.Cleanup(m.Shutdown)
	return m, clk
}

func joinRoom(t *testing.T, m *Manager, roomID, userID string) *Participant {
	t.Helper()
	p := NewParticipant(userID, 256)
	require.NoError(t, m.Join(context.Background(), roomID, p))
	return p
}

func send(t *testing.T, m *Manager, roomID string, p *Participant, raw string) error {
	t.Helper()
	msg, err := models.DecodeClientMessage([]byte(raw))
	require.NoError(t, err)
	return m.Dispatch(context.Background(), roomID, p, msg)
}

// expectEvent skips queued events until one of type typ arrives.
func expectEvent[T any](t *testing.T, p *Participant, typ models.MessageType) T {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case raw, ok := <-p.Send():
			require.True(t, ok, "queue of %s closed while waiting for %s", p.ID, typ)
			var envelope struct {
				Type models.MessageType `json:"type"`
			}
			require.NoError(t, json.Unmarshal(raw, &envelope))
			if envelope.Type != typ {
				continue
			}
			var ev T
			require.NoError(t, json.Unmarshal(raw, &ev))
			return ev
		case <-deadline:
			t.Fatalf("%s: no %s event within %s", p.ID, typ, waitFor)
		}
	}
}

// noEvent asserts that nothing of type typ shows up for a short while.
func noEvent(t *testing.T, p *Participant, typ models.MessageType) {
	t.Helper()
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case raw, ok := <-p.Send():
			if !ok {
				return
			}
			var envelope struct {
				Type models.MessageType `json:"type"`
			}
			require.NoError(t, json.Unmarshal(raw, &envelope))
			require.NotEqual(t, typ, envelope.Type, "unexpected %s for %s", typ, p.ID)
		case <-deadline:
			return
		}
	}
}

// waitClosed drains p until the room hangs up its queue.
func waitClosed(t *testing.T, p *Participant) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case _, ok := <-p.Send():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("queue of %s still open after %s", p.ID, waitFor)
		}
	}
}

func stats(t *testing.T, m *Manager, roomID string) models.Stats {
	t.Helper()
	s, err := m.Stats(context.Background(), roomID)
	require.NoError(t, err)
	return s
}

func pkState(t *testing.T, m *Manager, roomID string) string {
	t.Helper()
	s, err := m.Summary(context.Background(), roomID)
	require.NoError(t, err)
	return s.PKState
}

// queued reports how many commands wait in h's mailbox.
func queued(h *Hub) int {
	h.inbox.mu.Lock()
	defer h.inbox.mu.Unlock()
	return len(h.inbox.queue)
}

// startPK runs an accepted invite from room a (host alice) to room b
// (host bob).
func startPK(t *testing.T, m *Manager) (alice, bob *Participant) {
	t.Helper()
	alice = joinRoom(t, m, "a", "alice")
	bob = joinRoom(t, m, "b", "bob")

	require.NoError(t, send(t, m, "a", alice, `{"type":"invite_pk","from":"a","to":"b"}`))
	expectEvent[models.PKInviteEvent](t, bob, models.MessageTypeInvitePK)
	require.NoError(t, send(t, m, "b", bob, `{"type":"pk_response","from":"b","to":"a","accepted":true}`))

	expectEvent[models.PKStartedEvent](t, alice, models.MessageTypePKStarted)
	expectEvent[models.PKStartedEvent](t, bob, models.MessageTypePKStarted)
	return alice, bob
}

type recordingSink struct {
	mu        sync.Mutex
	published map[string]models.Stats
	removed   []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{published: make(map[string]models.Stats)}
}

func (s *recordingSink) Publish(roomID string, stats models.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[roomID] = stats
}

func (s *recordingSink) Remove(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, roomID)
}

func (s *recordingSink) snapshot(roomID string) (models.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.published[roomID]
	return st, ok
}

func (s *recordingSink) wasRemoved(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.removed {
		if id == roomID {
			return true
		}
	}
	return false
}
