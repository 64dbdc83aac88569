package live

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"live-app/internal/apperrors"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/benbjohnson/clock"
)

// Manager is the room registry. It maps room ids to running Hubs, creates
// rooms on first use and forgets them once they go idle.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	clock  clock.Clock
	hosts  HostDirectory
	sink   SnapshotSink

	mu   sync.Mutex
	hubs map[string]*Hub
	wg   sync.WaitGroup
}

func NewManager(cfg Config, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		clock:  clock.New(),
		hubs:   make(map[string]*Hub),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreateRoom returns the hub for roomID, starting one if needed.
// Concurrent callers for the same id always get the same hub.
func (m *Manager) GetOrCreateRoom(ctx context.Context, roomID string) (*Hub, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("%w: room id is required", apperrors.ErrInvalidArgument)
	}
	if err := m.ctx.Err(); err != nil {
		return nil, apperrors.ErrRoomClosed
	}
	if h, ok := m.Lookup(roomID); ok {
		return h, nil
	}

	hostID := m.resolveHost(ctx, roomID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hubs[roomID]; ok {
		return h, nil
	}
	h := newHub(roomID, hostID, m)
	m.hubs[roomID] = h
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		h.run(m.ctx)
	}()
	return h, nil
}

func (m *Manager) resolveHost(ctx context.Context, roomID string) string {
	if m.hosts == nil {
		return ""
	}
	hostID, err := m.hosts.RoomHost(ctx, roomID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Failed to resolve host of room %s: %v", roomID, err)
		}
		return ""
	}
	return hostID
}

func (m *Manager) Lookup(roomID string) (*Hub, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hubs[roomID]
	return h, ok
}

// RemoveRoomIfEmpty asks the room to close if it has no participants and
// no PK session. A room that is not empty is left alone.
func (m *Manager) RemoveRoomIfEmpty(roomID string) {
	if h, ok := m.Lookup(roomID); ok {
		h.post(idleCheck{})
	}
}

// release unregisters an idle hub and closes its mailbox under the
// registry lock, so no caller can find the hub and post to it afterwards.
func (m *Manager) release(h *Hub) []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hubs[h.id] == h {
		delete(m.hubs, h.id)
	}
	return h.inbox.close()
}

// Join adds p to roomID, creating the room on first use. A join that races
// with the room closing is retried against a fresh room.
func (m *Manager) Join(ctx context.Context, roomID string, p *Participant) error {
	for {
		h, err := m.GetOrCreateRoom(ctx, roomID)
		if err != nil {
			return err
		}
		err = h.request(ctx, func(reply chan error) command {
			return joinCmd{p: p, reply: reply}
		})
		if !errors.Is(err, apperrors.ErrRoomClosed) || m.ctx.Err() != nil || ctx.Err() != nil {
			return err
		}
	}
}

func (m *Manager) Leave(ctx context.Context, roomID string, p *Participant, cause error) error {
	h, ok := m.Lookup(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
	}
	err := h.request(ctx, func(reply chan error) command {
		return leaveCmd{p: p, cause: cause, reply: reply}
	})
	if errors.Is(err, apperrors.ErrRoomClosed) {
		return apperrors.ErrNotJoined
	}
	return err
}

// Touch records liveness for p without producing any event.
func (m *Manager) Touch(roomID string, p *Participant) {
	if h, ok := m.Lookup(roomID); ok {
		h.post(touchCmd{p: p})
	}
}

// Dispatch hands a decoded client message to the room actor and returns
// the actor's verdict.
func (m *Manager) Dispatch(ctx context.Context, roomID string, p *Participant, msg models.ClientMessage) error {
	h, ok := m.Lookup(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
	}
	return h.request(ctx, func(reply chan error) command {
		return clientCmd{p: p, msg: msg, reply: reply}
	})
}

func (m *Manager) Stats(ctx context.Context, roomID string) (models.Stats, error) {
	h, ok := m.Lookup(roomID)
	if !ok {
		return models.Stats{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
	}
	reply := make(chan models.Stats, 1)
	if !h.post(statsQuery{reply: reply}) {
		return models.Stats{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
	}
	select {
	case stats, ok := <-reply:
		if !ok {
			return models.Stats{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
		}
		return stats, nil
	case <-ctx.Done():
		return models.Stats{}, ctx.Err()
	}
}

func (m *Manager) Summary(ctx context.Context, roomID string) (models.RoomSummary, error) {
	h, ok := m.Lookup(roomID)
	if !ok {
		return models.RoomSummary{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, roomID)
	}
	return h.summarize(ctx)
}

// Rooms summarizes every active room, ordered by id.
func (m *Manager) Rooms(ctx context.Context) []models.RoomSummary {
	m.mu.Lock()
	hubs := make([]*Hub, 0, len(m.hubs))
	for _, h := range m.hubs {
		hubs = append(hubs, h)
	}
	m.mu.Unlock()

	out := make([]models.RoomSummary, 0, len(hubs))
	for _, h := range hubs {
		if s, err := h.summarize(ctx); err == nil {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b models.RoomSummary) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Shutdown stops every room and waits for the actors to exit.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
	m.mu.Lock()
	m.hubs = make(map[string]*Hub)
	m.mu.Unlock()
}

func (h *Hub) summarize(ctx context.Context) (models.RoomSummary, error) {
	reply := make(chan models.RoomSummary, 1)
	if !h.post(summaryQuery{reply: reply}) {
		return models.RoomSummary{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, h.id)
	}
	select {
	case s, ok := <-reply:
		if !ok {
			return models.RoomSummary{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, h.id)
		}
		return s, nil
	case <-ctx.Done():
		return models.RoomSummary{}, ctx.Err()
	}
}
