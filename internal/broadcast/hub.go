package broadcast

import (
	"sync"

	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/metrics"
	"github.com/google/uuid"
)

const defaultSubscriberBuffer = 16

// SubscriberInfo identifies the session behind a subscription.
type SubscriberInfo struct {
	UserID     uuid.UUID
	IsOperator bool
}

// Subscription is one connected session. Events is never closed; consumers
// stop reading once Done is closed.
type Subscription struct {
	id     uint64
	info   SubscriberInfo
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Events returns the receive side of the subscription buffer.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the subscription is removed from the hub.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Info returns the identity the subscription was opened with.
func (s *Subscription) Info() SubscriberInfo { return s.info }

func (s *Subscription) accepts(evt Event) bool {
	if evt.OriginUserID != uuid.Nil && evt.OriginUserID == s.info.UserID {
		return false
	}
	if evt.Kind == enums.BroadcastEventNoticeCreated && s.info.IsOperator {
		return false
	}
	return true
}

// Hub is the in-process registry of connected sessions.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	metrics *metrics.BroadcastMetrics
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, m *metrics.BroadcastMetrics) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:    make(map[uint64]*Subscription),
		buffer:  buffer,
		metrics: m,
	}
}

// Subscribe registers a session and returns its subscription.
func (h *Hub) Subscribe(info SubscriberInfo) *Subscription {
	h.mu.Lock()
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		info:   info,
		events: make(chan Event, h.buffer),
		done:   make(chan struct{}),
	}
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetSubscribers(count)
	return sub
}

// Unsubscribe removes the session. Calling it more than once is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub.id)
	count := len(h.subs)
	h.mu.Unlock()

	sub.once.Do(func() { close(sub.done) })
	h.metrics.SetSubscribers(count)
}

// Deliver hands evt to every eligible subscription without blocking and
// returns how many received it. A full buffer drops the event for that
// subscription only.
func (h *Hub) Deliver(evt Event) int {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	kind := evt.Kind.String()
	delivered := 0
	for _, sub := range targets {
		if !sub.accepts(evt) {
			continue
		}
		select {
		case <-sub.done:
		case sub.events <- evt:
			delivered++
		default:
			h.metrics.IncDropped(kind)
		}
	}
	h.metrics.AddDelivered(kind, delivered)
	return delivered
}

// SubscriberCount returns the number of connected sessions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every open subscription. Streams observe Done and return.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
	h.metrics.SetSubscribers(0)
}
