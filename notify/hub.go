package notify

import (
	"sort"
	"sync"

	"github.com/yeremiapane/restaurant-queue/models"
)

// Listener is called after a collection changed. It carries no payload;
// listeners re-read the collection they care about.
type Listener func()

// Hub holds the in-process listeners of every collection.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[models.Collection]map[int]Listener
}

func NewHub() *Hub {
	return &Hub{
		listeners: make(map[models.Collection]map[int]Listener),
	}
}

// Subscribe registers fn for changes of collection c. The returned function
// removes it and may be called more than once.
func (h *Hub) Subscribe(c models.Collection, fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.listeners[c] == nil {
		h.listeners[c] = make(map[int]Listener)
	}
	h.listeners[c][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[c], id)
		})
	}
}

// Notify calls every listener of c in subscription order. Listeners run
// outside the hub lock so they may subscribe, unsubscribe or write.
func (h *Hub) Notify(c models.Collection) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.listeners[c]))
	for id := range h.listeners[c] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.listeners[c][id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (h *Hub) Count(c models.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[c])
}
