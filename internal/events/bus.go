package events

import (
	"sync"

	"github.com/Greeshmanth1/daw/internal/observability"
)

const defaultBuffer = 64

// Subscription is one receiver's handle on the bus. Events arrive on C in
// the order they were published. The channel is closed by Unsubscribe.
type Subscription struct {
	C  <-chan Event
	id uint64
	ch chan Event
}

// Bus fans every published event out to all current subscribers. Delivery is
// best effort: a subscriber whose buffer is full has the event dropped, and
// nothing a subscriber does can surface an error to the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	buffer int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event), buffer: defaultBuffer}
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[b.nextID] = ch
	return &Subscription{C: ch, id: b.nextID, ch: ch}
}

// Unsubscribe removes the subscription and closes its channel. Safe to call
// more than once.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

// Publish delivers e to every current subscriber. Sends never block: a slow
// subscriber loses the event rather than stalling the publisher or its
// peers. Holding the read lock across the sends keeps Unsubscribe's close
// from racing an in-flight delivery.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	observability.EventsPublished.Inc()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			observability.EventsDropped.Inc()
		}
	}
}

// Len reports the current subscriber count.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
