package ws

import (
	"sync"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/pkg/log"
)

const defaultBusCapacity = 100

// Bus fans chat events out to every subscriber. Publishing never blocks: a
// subscriber whose buffer is full misses the event and must resync from
// history. Publish is serialized so all subscribers see one global order.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	capacity int
	metrics  *metrics.Metrics
}

func NewBus(capacity int, m *metrics.Metrics) *Bus {
	if capacity <= 0 {
		capacity = defaultBusCapacity
	}
	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		capacity: capacity,
		metrics:  m,
	}
}

// Subscription is one consumer's view of the bus. It only sees events
// published after it was created.
type Subscription struct {
	bus *Bus
	ch  chan domain.ChatEvent
}

// Subscribe registers a new listener. The caller must Cancel it when done.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, ch: make(chan domain.ChatEvent, b.capacity)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish hands ev to every current subscriber without blocking.
func (b *Bus) Publish(ev domain.ChatEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.EventPublished()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.metrics.EventDropped()
			l := log.L()
			l.Debug().Msg("bus subscriber lagging, event dropped")
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events is closed once the subscription is cancelled.
func (s *Subscription) Events() <-chan domain.ChatEvent {
	return s.ch
}

// Cancel detaches the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s]; ok {
		delete(s.bus.subs, s)
		close(s.ch)
	}
}
