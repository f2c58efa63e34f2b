package server

import (
	"sync"

	"docscribe/internal/preference"
)

const defaultHubBuffer = 16

// Hub fans preference events out to websocket subscribers. Slow subscribers
// drop events rather than block the store.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan preference.Event
	buffer int
	last   *preference.Event
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	return &Hub{subs: map[int]chan preference.Event{}, buffer: buffer}
}

// Publish matches the preference.Store subscriber signature.
func (h *Hub) Publish(evt preference.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &evt
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel of future events. cancel closes it.
func (h *Hub) Subscribe() (<-chan preference.Event, func()) {
	ch := make(chan preference.Event, h.buffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Last is the most recent event, if any was published.
func (h *Hub) Last() (preference.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return preference.Event{}, false
	}
	return *h.last, true
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
