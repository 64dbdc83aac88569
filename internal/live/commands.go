package live

import (
	"time"

	"live-app/internal/models"
)

// command is anything a room actor processes from its mailbox.
type command any

type joinCmd struct {
	p     *Participant
	reply chan error
}

type leaveCmd struct {
	p     *Participant
	cause error
	reply chan error
}

type touchCmd struct {
	p *Participant
}

type clientCmd struct {
	p     *Participant
	msg   models.ClientMessage
	reply chan error
}

type statsQuery struct {
	reply chan models.Stats
}

type summaryQuery struct {
	reply chan models.RoomSummary
}

type idleCheck struct{}

// Timer callbacks. They carry enough identity for the actor to discard
// stale firings.
type (
	heartbeatDue struct {
		userID string
	}
	inviteExpired struct {
		sessionID string
	}
	countdownExpired struct {
		sessionID string
	}
)

// Room to room messages of the PK protocol.
type (
	pkInvite struct {
		sessionID string
		hostRoom  string
		hostID    string
		expiresAt time.Time
	}
	pkDecline struct {
		sessionID string
		reason    string
	}
	pkAnswer struct {
		sessionID  string
		roomID     string
		accepted   bool
		opponentID string
	}
	pkScore struct {
		sessionID string
		roomID    string
		userID    string
		delta     int64
	}
	pkEnd struct {
		sessionID string
	}
	pkForfeit struct {
		sessionID string
		roomID    string
	}
	// pkSync mirrors the authoritative session onto the opponent room and
	// carries the already encoded event to broadcast there. PKIdle clears
	// the mirror.
	pkSync struct {
		sessionID  string
		state      PKState
		opponentID string
		scores     map[string]int64
		startedAt  time.Time
		endsAt     time.Time
		payload    []byte
	}
)

// fail answers a command that will never be processed. Reply channels have
// room for exactly one answer.
func fail(cmd command, err error) {
	switch c := cmd.(type) {
	case joinCmd:
		answer(c.reply, err)
	case leaveCmd:
		answer(c.reply, err)
	case clientCmd:
		answer(c.reply, err)
	case statsQuery:
		close(c.reply)
	case summaryQuery:
		close(c.reply)
	}
}

func answer(reply chan error, err error) {
	select {
	case reply <- err:
	default:
	}
}
