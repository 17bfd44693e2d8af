package hub

import (
	"sync"

	"github.com/CyNexa/InSOC/internal/eventlog"
	logpkg "github.com/CyNexa/InSOC/pkg/log"
)

// DefaultSubscriberBuf is the per-subscriber queue capacity when the
// configured value is non-positive.
const DefaultSubscriberBuf = 1024

// Hub fans stored events out to live subscribers in publish order.
type Hub struct {
	logger logpkg.Logger
	buf    int

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New returns a Hub whose subscriptions buffer up to buf events each.
func New(logger logpkg.Logger, buf int) *Hub {
	if buf <= 0 {
		buf = DefaultSubscriberBuf
	}
	return &Hub{
		logger: logger.With(logpkg.Component("hub")),
		buf:    buf,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscription is one live viewer attachment. The channel returned by C is
// closed when the subscription is detached, by Close or by overflow.
type Subscription struct {
	hub        *Hub
	ch         chan eventlog.Event
	closed     bool
	overflowed bool
}

// Subscribe registers a new subscription. The caller must Close it.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, ch: make(chan eventlog.Event, h.buf)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers ev to every live subscription. Delivery to each
// subscriber is a non-blocking enqueue onto its private queue; a full
// queue drops that subscriber and nobody else.
func (h *Hub) Publish(ev eventlog.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			s.overflowed = true
			h.detachLocked(s)
			h.logger.Warn("subscriber dropped on overflow", logpkg.Int64("event_id", ev.ID))
		}
	}
}

// ActiveSubscribers reports the number of attached subscriptions.
func (h *Hub) ActiveSubscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// detachLocked removes s and closes its channel. Caller holds h.mu.
func (h *Hub) detachLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(h.subs, s)
	close(s.ch)
}

// C returns the subscription's delivery channel.
func (s *Subscription) C() <-chan eventlog.Event { return s.ch }

// Overflowed reports whether the subscription was dropped because its
// queue filled up.
func (s *Subscription) Overflowed() bool {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.overflowed
}

// Close detaches the subscription and releases its queue. Idempotent.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.detachLocked(s)
}
