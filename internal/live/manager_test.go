package live

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"live-app/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateRoom_SameHubForConcurrentCallers(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	const callers = 32
	hubs := make([]*Hub, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.GetOrCreateRoom(context.Background(), "r1")
			assert.NoError(t, err)
			hubs[i] = h
		}(i)
	}
	wg.Wait()

	for _, h := range hubs {
		require.Same(t, hubs[0], h)
	}
}

func TestGetOrCreateRoom_EmptyID(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	_, err := m.GetOrCreateRoom(context.Background(), "  ")

	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

type staticHosts map[string]string

func (s staticHosts) RoomHost(_ context.Context, roomID string) (string, error) {
	host, ok := s[roomID]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return host, nil
}

func TestJoin_HostFromDirectory(t *testing.T) {
	req := require.New(t)
	m, _ := newTestManager(t, testConfig(), WithHostDirectory(staticHosts{"r1": "owner"}))

	viewer := joinRoom(t, m, "r1", "viewer")
	_ = joinRoom(t, m, "r1", "owner")

	summary, err := m.Summary(context.Background(), "r1")
	req.NoError(err)
	req.Equal("owner", summary.HostID)
	req.ErrorIs(send(t, m, "r1", viewer, `{"type":"invite_pk","from":"r1","to":"r2"}`), apperrors.ErrNotHost)
}

func TestJoin_FirstJoinerHostsUnregisteredRoom(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), WithHostDirectory(staticHosts{}))

	joinRoom(t, m, "r1", "u1")
	joinRoom(t, m, "r1", "u2")

	summary, err := m.Summary(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "u1", summary.HostID)
	require.Equal(t, []string{"u1", "u2"}, summary.Participants)
}

func TestJoin_ConcurrentViewers(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := NewParticipant(fmt.Sprintf("u%d", i), 256)
			assert.NoError(t, m.Join(context.Background(), "r1", p))
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(n), stats(t, m, "r1").Viewers)
}

func TestRoomClosesWhenLastParticipantLeaves(t *testing.T) {
	sink := newRecordingSink()
	m, _ := newTestManager(t, testConfig(), WithSnapshotSink(sink))
	p := joinRoom(t, m, "r1", "u1")

	require.NoError(t, m.Leave(context.Background(), "r1", p, nil))

	require.Eventually(t, func() bool {
		_, ok := m.Lookup("r1")
		return !ok
	}, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return sink.wasRemoved("r1") }, waitFor, 5*time.Millisecond)

	_, err := m.Stats(context.Background(), "r1")
	require.ErrorIs(t, err, apperrors.ErrUnknownRoom)
}

func TestRejoinAfterRoomClosed(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	p := joinRoom(t, m, "r1", "u1")
	require.NoError(t, m.Leave(context.Background(), "r1", p, nil))

	joinRoom(t, m, "r1", "u1")

	require.Equal(t, int64(1), stats(t, m, "r1").Viewers)
}

func TestRemoveRoomIfEmpty(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	_, err := m.GetOrCreateRoom(context.Background(), "empty")
	require.NoError(t, err)
	joinRoom(t, m, "busy", "u1")

	m.RemoveRoomIfEmpty("empty")
	m.RemoveRoomIfEmpty("busy")

	require.Eventually(t, func() bool {
		_, ok := m.Lookup("empty")
		return !ok
	}, waitFor, 5*time.Millisecond)
	_, ok := m.Lookup("busy")
	require.True(t, ok)
}

func TestRooms_ListsActiveRoomsInOrder(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	joinRoom(t, m, "b", "u2")
	joinRoom(t, m, "a", "u1")

	rooms := m.Rooms(context.Background())

	require.Len(t, rooms, 2)
	require.Equal(t, "a", rooms[0].ID)
	require.Equal(t, "b", rooms[1].ID)
	require.Equal(t, "idle", rooms[0].PKState)
}

func TestDispatch_UnknownRoom(t *testing.T) {
	m, _ := newTestManager(t, testConfig())

	err := send(t, m, "nowhere", NewParticipant("u1", 8), `{"type":"like","userId":"u1"}`)

	require.ErrorIs(t, err, apperrors.ErrUnknownRoom)
}

func TestShutdown_ClosesParticipants(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	p := joinRoom(t, m, "r1", "u1")

	m.Shutdown()

	waitClosed(t, p)
	require.ErrorIs(t, m.Join(context.Background(), "r1", NewParticipant("u2", 8)), apperrors.ErrRoomClosed)
}
