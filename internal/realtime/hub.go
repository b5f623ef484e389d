// Package realtime carries state-change notifications to connected
// clients and funnels client mutations through one typed command
// dispatcher. The Hub is an in-process publish/subscribe fan-out; a
// WebSocket (or any other) transport is a thin adapter that serializes
// Messages out and decodes Commands in.
package realtime

import "sync"

// Broadcaster is the outbound boundary the engines publish through.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Channel keys.
const (
	// ChannelIssues carries IssuesChanged events after mutations.
	ChannelIssues = "issues"
	// ChannelConflicts carries conflict records back to losing clients.
	ChannelConflicts = "conflicts"
)

// Message is one published payload with its channel key.
type Message struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// Hub is an in-process Broadcaster. Slow subscribers never block a
// broadcast: a message that does not fit a subscriber's buffer is
// dropped for that subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Message
	next int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Message)}
}

// Subscribe registers a listener on a channel key. The returned cancel
// function removes the subscription and closes the message channel.
func (h *Hub) Subscribe(channel string) (<-chan Message, func()) {
	ch := make(chan Message, 16)

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]chan Message)
	}
	id := h.next
	h.next++
	h.subs[channel][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[channel][id]; ok {
			delete(h.subs[channel], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Broadcast publishes a payload to every subscriber of the channel.
func (h *Hub) Broadcast(channel string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[channel] {
		select {
		case ch <- Message{Channel: channel, Payload: payload}:
		default: // subscriber buffer full, drop
		}
	}
}
