package stream

import (
	"sync"

	"github.com/jwalitptl/crm-api/pkg/metrics"
)

const DefaultQueueSize = 100

// Subscription is one open stream's queue. C is closed when the hub drops
// the subscription.
type Subscription struct {
	UserID int64
	C      <-chan Event

	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// offer enqueues ev without blocking. When the queue is full the oldest queued
// event is discarded to make room; the return value reports that.
func (s *Subscription) offer(ev Event) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return false
	default:
	}

	select {
	case <-s.ch:
		dropped = true
	default:
	}
	// only the consumer receives concurrently, so there is room now
	select {
	case s.ch <- ev:
	default:
	}
	return dropped
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub is the process-wide registry of open streams keyed by employee id.
// A user may hold several streams at once (one per tab or device).
type Hub struct {
	mu        sync.RWMutex
	subs      map[int64]map[*Subscription]struct{}
	queueSize int
	metrics   *metrics.Metrics
	closed    bool
}

func NewHub(queueSize int, m *metrics.Metrics) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		subs:      make(map[int64]map[*Subscription]struct{}),
		queueSize: queueSize,
		metrics:   m,
	}
}

// Subscribe registers a new stream for userID. On a closed hub the returned
// subscription is already closed.
func (h *Hub) Subscribe(userID int64) *Subscription {
	ch := make(chan Event, h.queueSize)
	sub := &Subscription{UserID: userID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.close()
		return sub
	}

	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.UserID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.UserID)
		}
	}
	h.mu.Unlock()

	sub.close()
}

// Publish offers ev to every open stream of userID and returns how many
// streams received it. It never blocks.
func (h *Hub) Publish(userID int64, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[userID] {
		if sub.offer(ev) {
			h.metrics.EventDropped()
		}
		delivered++
	}
	return delivered
}

// SubscriberCount returns the number of open streams for userID.
func (h *Hub) SubscriberCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Len returns the number of users with at least one open stream.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscription and refuses new ones. Open streams observe a
// closed queue, report an error event and end.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[int64]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.close()
		}
	}
}
