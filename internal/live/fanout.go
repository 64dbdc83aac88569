package live

import (
	"encoding/json"

	"live-app/pkg/logger"
)

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal %T: %v", v, err)
		return nil
	}
	return data
}

func (h *Hub) broadcast(v any) {
	h.broadcastRaw(encode(v), "")
}

// broadcastRaw enqueues msg for every member except the user with id except.
// Members whose queue is full are marked for eviction.
func (h *Hub) broadcastRaw(msg []byte, except string) {
	if msg == nil {
		return
	}
	for id, m := range h.members {
		if id == except {
			continue
		}
		if !m.p.deliver(msg) {
			h.evicted = append(h.evicted, m.p)
		}
	}
}

func (h *Hub) deliverTo(p *Participant, v any) {
	msg := encode(v)
	if msg == nil {
		return
	}
	if !p.deliver(msg) {
		h.evicted = append(h.evicted, p)
	}
}

// postPeer sends a PK protocol message to another room's actor.
func (h *Hub) postPeer(roomID string, cmd command) bool {
	peer, ok := h.manager.Lookup(roomID)
	if !ok {
		return false
	}
	return peer.post(cmd)
}
