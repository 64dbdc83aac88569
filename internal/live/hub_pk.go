package live

import (
	"fmt"

	"live-app/internal/apperrors"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/google/uuid"
)

func (h *Hub) requireHost(p *Participant) error {
	if p.ID != h.hostID {
		return fmt.Errorf("%w: %s is not the host of room %s", apperrors.ErrNotHost, p.ID, h.id)
	}
	return nil
}

func (h *Hub) invitePK(p *Participant, msg *models.InvitePK) error {
	if err := h.requireHost(p); err != nil {
		return err
	}
	if msg.From != "" && msg.From != h.id {
		return apperrors.Invalid("invite must come from room %s, not %s", h.id, msg.From)
	}
	if msg.To == h.id {
		return fmt.Errorf("%w: a room cannot invite itself", apperrors.ErrInvalidArgument)
	}
	if h.pk != nil {
		return fmt.Errorf("room %s: %w", h.id, apperrors.ErrAlreadyInSession)
	}
	if _, ok := h.manager.Lookup(msg.To); !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, msg.To)
	}

	s := newPKSession(uuid.NewString(), roleHost, h.id, msg.To)
	s.hostID = h.hostID
	s.inviteExpiresAt = h.clock.Now().Add(h.cfg.InviteTimeout)

	if !h.postPeer(msg.To, pkInvite{
		sessionID: s.id,
		hostRoom:  h.id,
		hostID:    h.hostID,
		expiresAt: s.inviteExpiresAt,
	}) {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, msg.To)
	}

	sessionID := s.id
	s.inviteTimer = h.clock.AfterFunc(h.cfg.InviteTimeout, func() {
		h.post(inviteExpired{sessionID: sessionID})
	})
	h.pk = s
	logger.Info("Room %s invited room %s to PK (session %s)", h.id, msg.To, s.id)
	return nil
}

// onPKInvite runs in the invited room.
func (h *Hub) onPKInvite(c pkInvite) {
	if h.pk != nil {
		h.postPeer(c.hostRoom, pkDecline{sessionID: c.sessionID, reason: string(apperrors.CodeAlreadyInSession)})
		return
	}
	s := newPKSession(c.sessionID, roleOpponent, c.hostRoom, h.id)
	s.hostID = c.hostID
	s.opponentID = h.hostID
	s.inviteExpiresAt = c.expiresAt
	h.pk = s

	h.broadcast(models.PKInviteEvent{
		Type:       models.MessageTypeInvitePK,
		SessionID:  s.id,
		From:       c.hostRoom,
		To:         h.id,
		FromHostID: c.hostID,
		ExpiresAt:  c.expiresAt.UnixMilli(),
	})
}

// onPKDecline runs in the inviting room when the target was busy.
func (h *Hub) onPKDecline(c pkDecline) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKInviteSent {
		return
	}
	s.stopTimers()
	h.pk = nil
	logger.Info("Room %s: PK invite to %s declined: %s", h.id, s.opponentRoom, c.reason)
	h.broadcast(models.PKResponseEvent{
		Type:      models.MessageTypePKResponse,
		SessionID: s.id,
		From:      s.opponentRoom,
		To:        h.id,
		Accepted:  false,
		Reason:    c.reason,
	})
}

// respondPK runs in the invited room when its host answers.
func (h *Hub) respondPK(p *Participant, msg *models.PKResponse) error {
	if err := h.requireHost(p); err != nil {
		return err
	}
	s := h.pk
	if s == nil || s.role != roleOpponent || s.state != PKInviteSent {
		return fmt.Errorf("room %s: no pending invite: %w", h.id, apperrors.ErrNotInSession)
	}
	if msg.To != "" && msg.To != s.hostRoom {
		return fmt.Errorf("room %s: no pending invite from %s: %w", h.id, msg.To, apperrors.ErrNotInSession)
	}
	accepted := *msg.Accepted

	if !h.postPeer(s.hostRoom, pkAnswer{
		sessionID:  s.id,
		roomID:     h.id,
		accepted:   accepted,
		opponentID: h.hostID,
	}) {
		h.pk = nil
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, s.hostRoom)
	}

	if accepted {
		s.state = PKAccepted
	} else {
		h.pk = nil
	}
	logger.Info("Room %s answered PK invite from %s: accepted=%t", h.id, s.hostRoom, accepted)
	return nil
}

// onPKAnswer runs in the inviting room.
func (h *Hub) onPKAnswer(c pkAnswer) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKInviteSent {
		// The invite already expired or was settled. An acceptance that lost
		// the race only needs the opponent's mirror cleared.
		if c.accepted {
			h.postPeer(c.roomID, pkSync{
				sessionID: c.sessionID,
				state:     PKIdle,
				payload: encode(models.PKInviteExpiredEvent{
					Type:      models.MessageTypePKInviteExpired,
					SessionID: c.sessionID,
					From:      h.id,
					To:        c.roomID,
				}),
			})
		}
		return
	}
	s.stopTimers()

	if !c.accepted {
		s.state = PKRejected
		h.pk = nil
		h.broadcast(models.PKResponseEvent{
			Type:      models.MessageTypePKResponse,
			SessionID: s.id,
			From:      s.opponentRoom,
			To:        h.id,
			Accepted:  false,
		})
		return
	}

	now := h.clock.Now()
	s.state = PKActive
	s.opponentID = c.opponentID
	s.startedAt = now
	s.endsAt = now.Add(h.cfg.PKDuration)
	sessionID := s.id
	s.endTimer = h.clock.AfterFunc(h.cfg.PKDuration, func() {
		h.post(countdownExpired{sessionID: sessionID})
	})
	logger.Info("PK %s started between rooms %s and %s", s.id, s.hostRoom, s.opponentRoom)
	h.broadcastPK(h.pkStartedEvent())
}

func (h *Hub) pkStartedEvent() models.PKStartedEvent {
	s := h.pk
	return models.PKStartedEvent{
		Type:           models.MessageTypePKStarted,
		SessionID:      s.id,
		HostRoomID:     s.hostRoom,
		OpponentRoomID: s.opponentRoom,
		HostID:         s.hostID,
		OpponentID:     s.opponentID,
		StartedAt:      s.startedAt.UnixMilli(),
		EndsAt:         s.endsAt.UnixMilli(),
		Scores:         s.snapshotScores(),
	}
}

// broadcastPK publishes a session event in this room and mirrors it, with
// the current session state, to the opponent room.
func (h *Hub) broadcastPK(v any) {
	s := h.pk
	payload := encode(v)
	h.broadcastRaw(payload, "")
	h.postPeer(s.opponentRoom, pkSync{
		sessionID:  s.id,
		state:      s.state,
		opponentID: s.opponentID,
		scores:     s.snapshotScores(),
		startedAt:  s.startedAt,
		endsAt:     s.endsAt,
		payload:    payload,
	})
}

// onPKSync runs in the opponent room.
func (h *Hub) onPKSync(c pkSync) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.role != roleOpponent {
		return
	}
	if c.state == PKIdle {
		h.pk = nil
	} else {
		s.state = c.state
		s.opponentID = c.opponentID
		s.scores = c.scores
		s.startedAt = c.startedAt
		s.endsAt = c.endsAt
	}
	h.broadcastRaw(c.payload, "")
}

// confirmPK acknowledges a client's pk_started.
func (h *Hub) confirmPK() error {
	if h.pk == nil || h.pk.state != PKActive {
		return fmt.Errorf("room %s: %w", h.id, apperrors.ErrNotInSession)
	}
	return nil
}

func (h *Hub) scorePK(p *Participant, delta int64) error {
	if delta < 0 {
		return apperrors.Invalid("pk score must not be negative")
	}
	if h.pk == nil || h.pk.state != PKActive {
		return fmt.Errorf("room %s: %w", h.id, apperrors.ErrNotInSession)
	}
	return h.addScore(p.ID, delta)
}

// addScore credits delta to this room's side of the active session.
func (h *Hub) addScore(userID string, delta int64) error {
	s := h.pk
	if s.role == roleHost {
		h.applyScore(h.id, userID, delta)
		return nil
	}
	if !h.postPeer(s.hostRoom, pkScore{sessionID: s.id, roomID: h.id, userID: userID, delta: delta}) {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, s.hostRoom)
	}
	return nil
}

func (h *Hub) onPKScore(c pkScore) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKActive || c.roomID != s.opponentRoom {
		return
	}
	h.applyScore(c.roomID, c.userID, c.delta)
}

func (h *Hub) applyScore(roomID, userID string, delta int64) {
	s := h.pk
	s.scores[roomID] = addCapped(s.scores[roomID], delta)
	h.broadcastPK(models.PKScoreEvent{
		Type:      models.MessageTypePKScore,
		SessionID: s.id,
		RoomID:    roomID,
		UserID:    userID,
		Score:     s.scores[roomID],
		Scores:    s.snapshotScores(),
	})
}

func (h *Hub) requestPKEnd(p *Participant) error {
	if err := h.requireHost(p); err != nil {
		return err
	}
	s := h.pk
	if s == nil || s.state != PKActive {
		return fmt.Errorf("room %s: %w", h.id, apperrors.ErrNotInSession)
	}
	if s.role == roleHost {
		h.settle(Settle(s.hostRoom, s.opponentRoom, s.scores[s.hostRoom], s.scores[s.opponentRoom], EndRequested))
		return nil
	}
	if !h.postPeer(s.hostRoom, pkEnd{sessionID: s.id}) {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownRoom, s.hostRoom)
	}
	return nil
}

func (h *Hub) onPKEnd(c pkEnd) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKActive {
		return
	}
	h.settle(Settle(s.hostRoom, s.opponentRoom, s.scores[s.hostRoom], s.scores[s.opponentRoom], EndRequested))
}

func (h *Hub) onCountdownExpired(c countdownExpired) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKActive {
		logger.Debug("Room %s: ignoring stale PK countdown %s", h.id, c.sessionID)
		return
	}
	h.settle(Settle(s.hostRoom, s.opponentRoom, s.scores[s.hostRoom], s.scores[s.opponentRoom], EndTimeout))
}

func (h *Hub) onInviteExpired(c inviteExpired) {
	s := h.pk
	if s == nil || s.id != c.sessionID || s.state != PKInviteSent {
		logger.Debug("Room %s: ignoring stale invite timer %s", h.id, c.sessionID)
		return
	}
	s.state = PKTimedOut
	s.stopTimers()
	h.pk = nil
	logger.Info("Room %s: PK invite to %s timed out", h.id, s.opponentRoom)

	payload := encode(models.PKInviteExpiredEvent{
		Type:      models.MessageTypePKInviteExpired,
		SessionID: s.id,
		From:      s.hostRoom,
		To:        s.opponentRoom,
	})
	h.broadcastRaw(payload, "")
	h.postPeer(s.opponentRoom, pkSync{sessionID: s.id, state: PKIdle, payload: payload})
}

// hostLeftDuringPK forfeits the session on behalf of this room.
func (h *Hub) hostLeftDuringPK() {
	s := h.pk
	switch s.state {
	case PKInviteSent, PKAccepted, PKActive:
	default:
		return
	}
	if s.role == roleHost {
		h.settle(Forfeit(s.hostRoom, s.opponentRoom, h.id, s.scores[s.hostRoom], s.scores[s.opponentRoom]))
		return
	}
	if !h.postPeer(s.hostRoom, pkForfeit{sessionID: s.id, roomID: h.id}) {
		h.pk = nil
	}
}

func (h *Hub) onPKForfeit(c pkForfeit) {
	s := h.pk
	if s == nil || s.id != c.sessionID || c.roomID != s.opponentRoom {
		return
	}
	if s.state != PKInviteSent && s.state != PKActive {
		return
	}
	h.settle(Forfeit(s.hostRoom, s.opponentRoom, c.roomID, s.scores[s.hostRoom], s.scores[s.opponentRoom]))
}

// settle ends the session in both rooms with a single pk_ended.
func (h *Hub) settle(result Settlement) {
	s := h.pk
	s.state = PKSettling
	s.stopTimers()

	payload := encode(models.PKEndedEvent{
		Type:           models.MessageTypePKEnded,
		SessionID:      s.id,
		HostRoomID:     s.hostRoom,
		OpponentRoomID: s.opponentRoom,
		HostID:         s.hostID,
		OpponentID:     s.opponentID,
		HostScore:      result.HostScore,
		OpponentScore:  result.OpponentScore,
		Winner:         result.Winner,
		Tie:            result.Tie,
		Reason:         string(result.Reason),
		Timestamp:      h.clock.Now().UnixMilli(),
	})
	h.broadcastRaw(payload, "")
	h.postPeer(s.opponentRoom, pkSync{sessionID: s.id, state: PKIdle, payload: payload})
	h.pk = nil

	if result.Tie {
		logger.Info("PK %s ended in a tie (%d:%d, %s)", s.id, result.HostScore, result.OpponentScore, result.Reason)
	} else {
		logger.Info("PK %s won by room %s (%d:%d, %s)", s.id, result.Winner, result.HostScore, result.OpponentScore, result.Reason)
	}
}
