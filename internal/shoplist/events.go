package shoplist

import (
	"sync"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

// DefaultSubscriberBuffer is the queue length given to each subscriber.
const DefaultSubscriberBuffer = 16

// Broker fans domain events out to subscribers. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan model.Event]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan model.Event]struct{})}
}

// Subscribe registers a subscriber. The returned function unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan model.Event, func()) {
	ch := make(chan model.Event, DefaultSubscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber with room in its queue and
// returns how many received it.
func (b *Broker) Publish(event model.Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subs {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of registered subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
