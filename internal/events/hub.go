// Package events records job outcomes and fans them out to subscribers
// such as the console log view and websocket clients.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultHistory = 80

type Kind string

const (
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
	KindNotice    Kind = "notice"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	Host   string    `json:"host,omitempty"`
	Port   int       `json:"port,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// Hub keeps the most recent events and broadcasts new ones. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	logger zerolog.Logger
	limit  int
	now    func() time.Time

	mu      sync.Mutex
	history []Event
	subs    map[uint64]chan Event
	nextID  uint64
	closed  bool
}

func NewHub(logger zerolog.Logger, limit int) *Hub {
	if limit <= 0 {
		limit = DefaultHistory
	}

	return &Hub{
		logger: logger,
		limit:  limit,
		now:    time.Now,
		subs:   make(map[uint64]chan Event),
	}
}

func (h *Hub) JobSucceeded(host string, port int) {
	h.Publish(Event{Kind: KindSucceeded, Host: host, Port: port})
}

func (h *Hub) JobFailed(detail string) {
	h.Publish(Event{Kind: KindFailed, Detail: detail})
}

// Notice records a lifecycle message such as the listener starting.
func (h *Hub) Notice(msg string) {
	h.Publish(Event{Kind: KindNotice, Detail: msg})
}

func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.history = append(h.history, e)
	if over := len(h.history) - h.limit; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Debug().Uint64("subscriber", id).Msg("subscriber lagging; event dropped")
		}
	}
}

// History returns a copy of the retained events, oldest first.
func (h *Hub) History() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Event(nil), h.history...)
}

// Subscribe registers a subscriber and returns the history at the moment
// of subscription, so no event is seen twice or missed in between. cancel
// closes the channel and is safe to call more than once.
func (h *Hub) Subscribe(buffer int) ([]Event, <-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return nil, ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	history := append([]Event(nil), h.history...)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if c, ok := h.subs[id]; ok {
				close(c)
				delete(h.subs, id)
			}
		})
	}

	return history, ch, cancel
}

// Close ends every subscription. Later events are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
