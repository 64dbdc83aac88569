package live

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Participant is the engine-side handle of one client connection: its
// identity and its outbound queue. The transport drains Send(); the room
// actor is the only writer and the only one that closes the queue.
type Participant struct {
	ID     string
	ConnID string

	send   chan []byte
	once   sync.Once
	closed atomic.Bool
}

func NewParticipant(id string, buffer int) *Participant {
	if buffer <= 0 {
		buffer = 256
	}
	return &Participant{
		ID:     id,
		ConnID: uuid.NewString(),
		send:   make(chan []byte, buffer),
	}
}

// Send is closed once the participant has been removed from its room.
func (p *Participant) Send() <-chan []byte {
	return p.send
}

func (p *Participant) Closed() bool {
	return p.closed.Load()
}

// deliver never blocks. A false return means the queue is full.
func (p *Participant) deliver(msg []byte) bool {
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

func (p *Participant) close() {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.send)
	})
}
