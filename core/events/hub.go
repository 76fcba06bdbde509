package events

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans events out to registered sinks and to buffered subscriber
// channels. A subscriber that falls behind loses events rather than stalling
// the emitter.
type Hub struct {
	mu     sync.RWMutex
	sinks  []Emitter
	subs   map[uuid.UUID]chan Event
	onDrop func()
}

// NewHub returns a hub forwarding to the provided sinks.
func NewHub(sinks ...Emitter) *Hub {
	return &Hub{sinks: sinks, subs: make(map[uuid.UUID]chan Event)}
}

// AddSink registers another synchronous receiver.
func (h *Hub) AddSink(sink Emitter) {
	if sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// SetDropHook installs a callback invoked whenever a subscriber misses an
// event.
func (h *Hub) SetDropHook(fn func()) {
	h.mu.Lock()
	h.onDrop = fn
	h.mu.Unlock()
}

// Subscribe registers a channel receiving every subsequent event. The
// returned cancel function unregisters and closes it.
func (h *Hub) Subscribe(buffer int) (uuid.UUID, <-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	id := uuid.New()
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return id, ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Emit implements the Emitter interface.
func (h *Hub) Emit(evt Event) {
	if evt == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sink := range h.sinks {
		sink.Emit(evt)
	}
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}
