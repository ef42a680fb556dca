// Package web provides the embedded local console: live session events
// over SSE, session state, and Prometheus metrics.
package web

import (
	"sync"
	"time"
)

// historySize bounds the replay buffer handed to new subscribers.
const historySize = 200

// Event is a single event broadcast to SSE clients.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
	Data    any    `json:"data,omitempty"`
}

// EventHub fans session events out to connected SSE clients. Publishing
// never blocks: subscribers that fall behind lose events.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}

	// Replay ring, oldest entry at ring[next] once full.
	ring  [historySize]Event
	next  int
	count int
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]struct{})}
}

// Publish records e in the replay ring and offers it to every subscriber.
func (h *EventHub) Publish(e Event) {
	if e.Time == "" {
		e.Time = time.Now().Format(time.RFC3339)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = e
	h.next = (h.next + 1) % historySize
	if h.count < historySize {
		h.count++
	}

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Subscriber buffer full; the session must not stall on it.
		}
	}
}

// replay returns the buffered events oldest-first.
func (h *EventHub) replay() []Event {
	out := make([]Event, 0, h.count)
	start := h.next - h.count
	if start < 0 {
		start += historySize
	}
	for i := 0; i < h.count; i++ {
		out = append(out, h.ring[(start+i)%historySize])
	}
	return out
}

// Subscribe registers a new client. The returned channel first replays
// recent history, then carries live events. Calling the cancel function
// detaches the client and closes the channel.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	backlog := h.replay()
	h.mu.Unlock()

	go func() {
		for _, e := range backlog {
			ch <- e
		}
	}()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		go func() {
			for range ch {
			}
		}()
		close(ch)
	}
	return ch, cancel
}
