package live

import (
	"context"
	"fmt"
	"slices"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

type member struct {
	p          *Participant
	joinedAt   time.Time
	lastSeenAt time.Time
	heartbeat  *clock.Timer
}

// Hub is the actor that owns one live room. Every field below inbox is
// touched only by the goroutine running run().
type Hub struct {
	id      string
	manager *Manager
	cfg     Config
	clock   clock.Clock
	sink    SnapshotSink
	inbox   *mailbox

	hostID    string
	createdAt time.Time
	members   map[string]*member
	stats     models.Stats
	pk        *pkSession
	evicted   []*Participant
}

func newHub(id, hostID string, m *Manager) *Hub {
	return &Hub{
		id:        id,
		manager:   m,
		cfg:       m.cfg,
		clock:     m.clock,
		sink:      m.sink,
		inbox:     newMailbox(),
		hostID:    hostID,
		createdAt: m.clock.Now(),
		members:   make(map[string]*member),
	}
}

func (h *Hub) ID() string {
	return h.id
}

func (h *Hub) post(cmd command) bool {
	return h.inbox.push(cmd)
}

// request posts a command built around a fresh reply channel and waits
// for the actor to answer it.
func (h *Hub) request(ctx context.Context, build func(reply chan error) command) error {
	reply := make(chan error, 1)
	if !h.post(build(reply)) {
		return apperrors.ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run(ctx context.Context) {
	durationTicker := h.clock.Ticker(h.cfg.DurationTick)
	defer durationTicker.Stop()
	statsTicker := h.clock.Ticker(h.cfg.StatsInterval)
	defer statsTicker.Stop()

	logger.Info("Room %s opened (host %q)", h.id, h.hostID)

	for {
		select {
		case <-ctx.Done():
			h.shutdown(apperrors.ErrRoomClosed)
			return

		case <-h.inbox.ready:
			for _, cmd := range h.inbox.drain() {
				h.handle(cmd)
			}
			if h.idle() {
				for _, cmd := range h.manager.release(h) {
					h.reject(cmd)
				}
				h.shutdown(apperrors.ErrRoomClosed)
				return
			}

		case <-durationTicker.C:
			h.stats = Apply(h.stats, Elapsed{Since: h.clock.Since(h.createdAt)})

		case <-statsTicker.C:
			h.broadcast(h.statsUpdate())
			h.flushEvictions()
			if h.sink != nil {
				h.sink.Publish(h.id, h.stats)
			}
		}
	}
}

// reject answers a command that arrived after the room went idle.
func (h *Hub) reject(cmd command) {
	if invite, ok := cmd.(pkInvite); ok {
		h.postPeer(invite.hostRoom, pkDecline{sessionID: invite.sessionID, reason: string(apperrors.CodeUnknownRoom)})
		return
	}
	fail(cmd, apperrors.ErrRoomClosed)
}

func (h *Hub) idle() bool {
	return len(h.members) == 0 && h.pk == nil
}

// shutdown ends the room: pending commands fail with cause, timers stop and
// every remaining outbound queue is closed so transports can hang up.
func (h *Hub) shutdown(cause error) {
	for _, cmd := range h.inbox.close() {
		fail(cmd, cause)
	}
	h.evicted = nil
	if h.pk != nil {
		h.pk.stopTimers()
		h.pk = nil
	}
	for id, m := range h.members {
		m.heartbeat.Stop()
		m.p.close()
		delete(h.members, id)
	}
	if h.sink != nil {
		h.sink.Remove(h.id)
	}
	logger.Info("Room %s closed", h.id)
}

func (h *Hub) handle(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Room %s: recovered from panic while handling %T: %v", h.id, cmd, r)
			fail(cmd, fmt.Errorf("room %s: internal error", h.id))
		}
	}()

	switch c := cmd.(type) {
	case joinCmd:
		c.reply <- h.join(c.p)
	case leaveCmd:
		c.reply <- h.leave(c.p, c.cause)
	case touchCmd:
		h.touch(c.p)
	case clientCmd:
		c.reply <- h.dispatch(c.p, c.msg)
	case statsQuery:
		c.reply <- h.stats
	case summaryQuery:
		c.reply <- h.summary()
	case idleCheck:
		// the post-batch idle check does the work
	case heartbeatDue:
		h.checkHeartbeat(c.userID)
	case inviteExpired:
		h.onInviteExpired(c)
	case countdownExpired:
		h.onCountdownExpired(c)
	case pkInvite:
		h.onPKInvite(c)
	case pkDecline:
		h.onPKDecline(c)
	case pkAnswer:
		h.onPKAnswer(c)
	case pkScore:
		h.onPKScore(c)
	case pkEnd:
		h.onPKEnd(c)
	case pkForfeit:
		h.onPKForfeit(c)
	case pkSync:
		h.onPKSync(c)
	default:
		logger.Warn("Room %s: unknown command %T", h.id, cmd)
	}
	h.flushEvictions()
}

func (h *Hub) join(p *Participant) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: participant id is required", apperrors.ErrInvalidArgument)
	}
	if p.Closed() {
		return fmt.Errorf("%w: participant %s is already closed", apperrors.ErrInvalidArgument, p.ID)
	}
	now := h.clock.Now()

	if m, ok := h.members[p.ID]; ok {
		m.lastSeenAt = now
		if m.p == p {
			return nil
		}
		// Same user on a new connection: the membership moves over and the
		// old connection is hung up.
		old := m.p
		m.p = p
		old.close()
		logger.Info("User %s resumed in room %s on connection %s", p.ID, h.id, p.ConnID)
		h.syncJoiner(p)
		return nil
	}

	if h.hostID == "" {
		h.hostID = p.ID
		logger.Info("User %s is now host of room %s", p.ID, h.id)
	}
	userID := p.ID
	h.members[p.ID] = &member{
		p:          p,
		joinedAt:   now,
		lastSeenAt: now,
		heartbeat: h.clock.AfterFunc(h.cfg.HeartbeatTimeout, func() {
			h.post(heartbeatDue{userID: userID})
		}),
	}
	h.stats = Apply(h.stats, ViewerJoined{})
	logger.Info("User %s joined room %s (%d viewers)", p.ID, h.id, h.stats.Viewers)

	h.broadcast(models.UserPresence{
		Type:    models.MessageTypeUserJoined,
		RoomID:  h.id,
		UserID:  p.ID,
		Viewers: h.stats.Viewers,
	})
	h.syncJoiner(p)
	return nil
}

// syncJoiner brings a new connection up to date: current stats and, if a
// PK is running, the pk_started it missed.
func (h *Hub) syncJoiner(p *Participant) {
	h.deliverTo(p, h.statsUpdate())
	if h.pk != nil && h.pk.state == PKActive {
		h.deliverTo(p, h.pkStartedEvent())
	}
}

func (h *Hub) leave(p *Participant, cause error) error {
	m, ok := h.members[p.ID]
	if !ok || m.p != p {
		return apperrors.ErrNotJoined
	}
	h.removeMember(m, cause)
	return nil
}

func (h *Hub) removeMember(m *member, cause error) {
	id := m.p.ID
	delete(h.members, id)
	m.heartbeat.Stop()
	m.p.close()
	h.stats = Apply(h.stats, ViewerLeft{})

	if cause != nil {
		logger.Info("User %s left room %s: %v (%d viewers)", id, h.id, cause, h.stats.Viewers)
	} else {
		logger.Info("User %s left room %s (%d viewers)", id, h.id, h.stats.Viewers)
	}

	h.broadcast(models.UserPresence{
		Type:    models.MessageTypeUserLeft,
		RoomID:  h.id,
		UserID:  id,
		Viewers: h.stats.Viewers,
	})

	if id == h.hostID && h.pk != nil {
		h.hostLeftDuringPK()
	}
}

func (h *Hub) touch(p *Participant) {
	if m, ok := h.members[p.ID]; ok && m.p == p {
		m.lastSeenAt = h.clock.Now()
	}
}

func (h *Hub) checkHeartbeat(userID string) {
	m, ok := h.members[userID]
	if !ok {
		return
	}
	silent := h.clock.Since(m.lastSeenAt)
	if silent >= h.cfg.HeartbeatTimeout {
		h.removeMember(m, fmt.Errorf("%w: no heartbeat for %s", apperrors.ErrTransportLost, silent))
		return
	}
	m.heartbeat.Stop()
	m.heartbeat = h.clock.AfterFunc(h.cfg.HeartbeatTimeout-silent, func() {
		h.post(heartbeatDue{userID: userID})
	})
}

// flushEvictions removes participants whose queues overflowed. Removal
// broadcasts user_left, which may overflow further queues.
func (h *Hub) flushEvictions() {
	for len(h.evicted) > 0 {
		batch := h.evicted
		h.evicted = nil
		for _, p := range batch {
			if m, ok := h.members[p.ID]; ok && m.p == p {
				h.removeMember(m, fmt.Errorf("%w: outbound queue full", apperrors.ErrTransportLost))
			}
		}
	}
}

func (h *Hub) dispatch(p *Participant, msg models.ClientMessage) error {
	m, ok := h.members[p.ID]
	if !ok || m.p != p {
		return apperrors.ErrNotJoined
	}
	now := h.clock.Now()
	m.lastSeenAt = now

	switch msg := msg.(type) {
	case *models.JoinLive, *models.Heartbeat:
		return nil

	case *models.Like:
		h.stats = Apply(h.stats, LikeReceived{})
		h.broadcast(models.LikeEvent{
			Type:      models.MessageTypeLike,
			RoomID:    h.id,
			UserID:    p.ID,
			Likes:     h.stats.Likes,
			Timestamp: now.UnixMilli(),
		})
		return nil

	case *models.Gift:
		price := int64(msg.GiftPrice)
		h.stats = Apply(h.stats, GiftReceived{Price: price})
		h.broadcast(models.GiftEvent{
			Type:      models.MessageTypeGift,
			RoomID:    h.id,
			UserID:    p.ID,
			GiftID:    msg.GiftID,
			GiftName:  msg.GiftName,
			GiftPrice: price,
			Gifts:     h.stats.Gifts,
			Revenue:   h.stats.Revenue,
			Timestamp: now.UnixMilli(),
		})
		if h.cfg.PKGiftScoring && price > 0 && h.pk != nil && h.pk.state == PKActive {
			if err := h.addScore(p.ID, price); err != nil {
				logger.Warn("Room %s: gift score not counted: %v", h.id, err)
			}
		}
		return nil

	case *models.Comment:
		h.stats = Apply(h.stats, CommentPosted{})
		h.broadcast(models.CommentEvent{
			Type:      models.MessageTypeComment,
			RoomID:    h.id,
			UserID:    p.ID,
			Content:   msg.Content,
			Comments:  h.stats.Comments,
			Timestamp: now.UnixMilli(),
		})
		return nil

	case *models.RequestStats:
		h.deliverTo(p, h.statsUpdate())
		return nil

	case *models.InvitePK:
		return h.invitePK(p, msg)
	case *models.PKResponse:
		return h.respondPK(p, msg)
	case *models.PKStarted:
		return h.confirmPK()
	case *models.PKScore:
		return h.scorePK(p, msg.Score)
	case *models.PKEnded:
		return h.requestPKEnd(p)

	case *models.Relay:
		h.broadcastRaw(msg.Payload, p.ID)
		return nil

	default:
		return apperrors.Invalid("unsupported message %q", msg.Kind())
	}
}

func (h *Hub) statsUpdate() models.StatsUpdate {
	return models.StatsUpdate{Type: models.MessageTypeStatsUpdate, RoomID: h.id, Stats: h.stats}
}

func (h *Hub) summary() models.RoomSummary {
	participants := lo.Keys(h.members)
	slices.Sort(participants)
	out := models.RoomSummary{
		ID:           h.id,
		HostID:       h.hostID,
		Participants: participants,
		Stats:        h.stats,
		PKState:      PKIdle.String(),
		CreatedAt:    h.createdAt,
	}
	if h.pk != nil {
		out.PKState = h.pk.state.String()
		out.PKOpponent = h.pk.peer(h.id)
	}
	return out
}
