package store

import (
	"sync"

	"fintrack/internal/core"
)

// Subscription is a cancelable live feed of expense snapshots for one user.
// Delivery is conflated: a subscriber that falls behind sees only the most
// recent snapshot, never a backlog.
type Subscription struct {
	// C delivers the full current snapshot on subscribe and after every
	// change. Closed when the subscription is canceled.
	C <-chan []core.Expense

	done   chan struct{}
	once   sync.Once
	cancel func()
}

// Cancel stops delivery and releases the subscriber. Safe to call more
// than once and concurrently with publishes.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// Done is closed when the subscription has been canceled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Hub fans expense snapshots out to per-user subscribers. Backends publish
// into it after every successful write; the HTTP stream and the change-event
// consumer both drive it.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []core.Expense
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []core.Expense)}
}

// Subscribe registers a subscriber for userID. The caller seeds the initial
// snapshot via Publish or by sending on the returned channel's buffer.
func (h *Hub) Subscribe(userID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan []core.Expense, 1)
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan []core.Expense)
	}
	h.subs[userID][id] = ch

	return &Subscription{
		C:    ch,
		done: make(chan struct{}),
		cancel: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if m := h.subs[userID]; m != nil {
				if _, ok := m[id]; ok {
					delete(m, id)
					close(ch)
				}
				if len(m) == 0 {
					delete(h.subs, userID)
				}
			}
		},
	}
}

// Publish delivers snapshot to every subscriber of userID, replacing any
// undelivered previous snapshot. Subscribers of other users never see it.
func (h *Hub) Publish(userID string, snapshot []core.Expense) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// SubscriberCount reports how many feeds are open for userID.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
