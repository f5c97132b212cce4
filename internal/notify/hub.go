// Package notify carries "event mutated" signals from the subsystems that
// change events to whoever needs to re-fetch. Subscriptions are explicit;
// there is no global bus.
package notify

import "sync"

type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
	// Changed is a coarse signal, e.g. a feed whose payload changed.
	Changed Kind = "changed"
)

// ParseKind maps unknown strings to Changed.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case Created, Updated, Deleted:
		return k
	default:
		return Changed
	}
}

type Mutation struct {
	Kind    Kind   `json:"kind"`
	EventID string `json:"event_id,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Hub fans out mutations to subscribers. Handlers run synchronously on the
// publisher's goroutine, outside the hub's lock.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Mutation)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Mutation))}
}

// Subscribe registers fn and returns a cancel func; cancel is idempotent.
func (h *Hub) Subscribe(fn func(Mutation)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(m Mutation) {
	h.mu.Lock()
	fns := make([]func(Mutation), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
