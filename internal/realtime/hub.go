package realtime

import (
	"log/slog"
	"sync"

	"github.com/mmynk/splitcheck/internal/metrics"
)

const sendBufferSize = 64

// Subscription receives the events of one session.
type Subscription struct {
	hub       *Hub
	sessionID string
	ch        chan Event
}

var _ Stream = (*Subscription)(nil)

// C returns the event channel. It is closed when the subscription is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub maintains per-session subscriber sets and publishes events to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Subscription]struct{}
	logger   *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Subscription]struct{}),
		logger:   logger.With("component", "realtime"),
	}
}

// Subscribe registers a subscriber for a session's events.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		hub:       h,
		sessionID: sessionID,
		ch:        make(chan Event, sendBufferSize),
	}

	h.mu.Lock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.sessions[sessionID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.sessions[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.sessions, sub.sessionID)
	}
	metrics.RealtimeSubscribers.Dec()
}

// Publish sends an event to every subscriber of its session. An event
// without a session goes to every subscriber. A subscriber whose buffer is
// full is closed instead of skipped, so it has to resubscribe and reload
// the session rather than keep applying deltas with a gap.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Subscription
	deliver := func(subs map[*Subscription]struct{}) {
		for sub := range subs {
			select {
			case sub.ch <- e:
			default:
				slow = append(slow, sub)
			}
		}
	}

	if e.SessionID == "" {
		for _, subs := range h.sessions {
			deliver(subs)
		}
	} else {
		deliver(h.sessions[e.SessionID])
	}

	for _, sub := range slow {
		metrics.RealtimeEvicted.Inc()
		h.logger.Warn("Subscriber buffer full, closing subscription",
			"session_id", sub.sessionID, "table", e.Table, "type", e.Type)
		h.removeLocked(sub)
	}
}

// SubscriberCount returns the number of subscribers of a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
