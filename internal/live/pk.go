package live

import (
	"maps"
	"time"

	"github.com/benbjohnson/clock"
)

type PKState int

const (
	PKIdle PKState = iota
	PKInviteSent
	PKAccepted
	PKActive
	PKSettling
	PKRejected
	PKTimedOut
	PKForfeited
)

func (s PKState) String() string {
	switch s {
	case PKInviteSent:
		return "invite_sent"
	case PKAccepted:
		return "accepted"
	case PKActive:
		return "active"
	case PKSettling:
		return "settling"
	case PKRejected:
		return "rejected"
	case PKTimedOut:
		return "timed_out"
	case PKForfeited:
		return "forfeited"
	default:
		return "idle"
	}
}

type EndReason string

const (
	EndTimeout   EndReason = "timeout"
	EndRequested EndReason = "requested"
	EndForfeit   EndReason = "forfeit"
)

// Settlement is the outcome of a PK session. Winner is empty on a tie.
type Settlement struct {
	HostScore     int64
	OpponentScore int64
	Winner        string
	Tie           bool
	Reason        EndReason
}

// Settle decides a session on score: the strictly higher score wins and
// equal scores are a tie.
func Settle(hostRoom, opponentRoom string, hostScore, opponentScore int64, reason EndReason) Settlement {
	out := Settlement{HostScore: hostScore, OpponentScore: opponentScore, Reason: reason}
	switch {
	case hostScore > opponentScore:
		out.Winner = hostRoom
	case opponentScore > hostScore:
		out.Winner = opponentRoom
	default:
		out.Tie = true
	}
	return out
}

// Forfeit declares the room that stayed the winner regardless of score.
func Forfeit(hostRoom, opponentRoom, leftRoom string, hostScore, opponentScore int64) Settlement {
	winner := hostRoom
	if leftRoom == hostRoom {
		winner = opponentRoom
	}
	return Settlement{HostScore: hostScore, OpponentScore: opponentScore, Winner: winner, Reason: EndForfeit}
}

type pkRole int

const (
	// roleHost marks the inviting room, which owns the session state,
	// its timers and settlement.
	roleHost pkRole = iota
	// roleOpponent marks the invited room, which keeps a mirror fed by
	// pkSync messages.
	roleOpponent
)

type pkSession struct {
	id           string
	role         pkRole
	hostRoom     string
	opponentRoom string
	hostID       string
	opponentID   string
	state        PKState
	scores       map[string]int64

	inviteExpiresAt time.Time
	startedAt       time.Time
	endsAt          time.Time

	inviteTimer *clock.Timer
	endTimer    *clock.Timer
}

func newPKSession(id string, role pkRole, hostRoom, opponentRoom string) *pkSession {
	return &pkSession{
		id:           id,
		role:         role,
		hostRoom:     hostRoom,
		opponentRoom: opponentRoom,
		state:        PKInviteSent,
		scores:       map[string]int64{hostRoom: 0, opponentRoom: 0},
	}
}

// peer returns the other room of the session as seen from self.
func (s *pkSession) peer(self string) string {
	if self == s.hostRoom {
		return s.opponentRoom
	}
	return s.hostRoom
}

func (s *pkSession) snapshotScores() map[string]int64 {
	return maps.Clone(s.scores)
}

func (s *pkSession) stopTimers() {
	if s.inviteTimer != nil {
		s.inviteTimer.Stop()
		s.inviteTimer = nil
	}
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
}
