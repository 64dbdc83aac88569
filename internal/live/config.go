package live

import (
	"context"
	"time"

	"live-app/internal/models"

	"github.com/benbjohnson/clock"
)

// Config holds the timers of the live engine.
type Config struct {
	InviteTimeout    time.Duration
	PKDuration       time.Duration
	StatsInterval    time.Duration
	DurationTick     time.Duration
	HeartbeatTimeout time.Duration
	// PKGiftScoring adds the price of gifts received during an active PK
	// to the receiving room's score.
	PKGiftScoring bool
}

func DefaultConfig() Config {
	return Config{
		InviteTimeout:    30 * time.Second,
		PKDuration:       60 * time.Second,
		StatsInterval:    5 * time.Second,
		DurationTick:     time.Second,
		HeartbeatTimeout: 30 * time.Second,
		PKGiftScoring:    true,
	}
}

// HostDirectory resolves the configured host of a room. An empty id means
// the room has no registered owner and the first participant becomes host.
type HostDirectory interface {
	RoomHost(ctx context.Context, roomID string) (string, error)
}

// SnapshotSink receives the periodic stats snapshot of every room.
// Implementations must return without blocking.
type SnapshotSink interface {
	Publish(roomID string, stats models.Stats)
	Remove(roomID string)
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithHostDirectory(d HostDirectory) Option {
	return func(m *Manager) { m.hosts = d }
}

func WithSnapshotSink(s SnapshotSink) Option {
	return func(m *Manager) { m.sink = s }
}
