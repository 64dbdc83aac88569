package live

import "sync"

// mailbox is the unbounded, ordered inbox of a room actor. Pushing never
// blocks, so one actor can message another without risking a cycle of
// full channels.
type mailbox struct {
	mu     sync.Mutex
	queue  []command
	closed bool
	ready  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(cmd command) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, cmd)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

func (m *mailbox) drain() []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// close rejects further pushes and hands back whatever was still queued.
func (m *mailbox) close() []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	q := m.queue
	m.queue = nil
	return q
}
