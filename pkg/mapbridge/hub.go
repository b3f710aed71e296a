package mapbridge

import (
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Hub holds the current district selection and fans changes out to
// subscribers. A subscriber whose queue is full misses the message.
type Hub struct {
	mu       sync.Mutex
	selected *string
	subs     map[int]chan Message
	nextID   int
	buffer   int
	logger   *slog.Logger
}

// NewHub creates an empty hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[int]chan Message),
		buffer: DefaultBuffer,
		logger: logger,
	}
}

// Selection returns the selected district, or "" and false when none.
func (h *Hub) Selection() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selected == nil {
		return "", false
	}
	return *h.selected, true
}

// Select applies a selection request. Selecting the current district or
// the empty string clears the selection. The resulting state is
// broadcast as SelectionChanged and returned.
func (h *Hub) Select(district string) SelectionChanged {
	h.mu.Lock()
	defer h.mu.Unlock()

	if district == "" || (h.selected != nil && *h.selected == district) {
		h.selected = nil
	} else {
		d := district
		h.selected = &d
	}

	msg := SelectionChanged{District: h.selected}
	h.broadcastLocked(msg)
	return msg
}

// Clear drops the selection.
func (h *Hub) Clear() SelectionChanged {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selected = nil
	msg := SelectionChanged{}
	h.broadcastLocked(msg)
	return msg
}

// Handle processes an inbound message from the map. Only DistrictSelected
// changes state; outbound variants are rejected.
func (h *Hub) Handle(m Message) (SelectionChanged, error) {
	switch v := m.(type) {
	case DistrictSelected:
		return h.Select(v.District), nil
	default:
		return SelectionChanged{}, &DirectionError{Type: m.Type()}
	}
}

// Publish sends m to every subscriber without touching the selection.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(m)
}

// Subscribe registers a listener. The returned cancel func must be called
// to release it; the channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Message, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcastLocked(m Message) {
	for id, ch := range h.subs {
		select {
		case ch <- m:
		default:
			h.logger.Warn("mapbridge: subscriber too slow, message dropped", "subscriber", id, "type", m.Type())
		}
	}
}
