// Package bus is an in-process publish/subscribe bus with named, typed
// topics.
package bus

import "sync"

// Topic names a channel of values of type T.
type Topic[T any] struct {
	Name string
}

// NewTopic declares a topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{Name: name}
}

type handler struct {
	id int
	fn any
}

// Bus dispatches published values to the handlers subscribed to a topic.
// Handlers run synchronously on the publisher's goroutine, in subscription
// order. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]handler)}
}

// Subscription is returned by Subscribe and cancels delivery when
// unsubscribed.
type Subscription struct {
	bus   *Bus
	topic string
	id    int
	once  sync.Once
}

// Unsubscribe stops delivery to the handler. It is safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

// Subscribe registers fn for values published on t.
func Subscribe[T any](b *Bus, t Topic[T], fn func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[t.Name] = append(b.subs[t.Name], handler{id: id, fn: fn})
	return &Subscription{bus: b, topic: t.Name, id: id}
}

// SubscribeChan delivers values on t to a buffered channel. Values are
// dropped when the channel is full so a slow reader never blocks the
// publisher. The channel is not closed on Unsubscribe.
func SubscribeChan[T any](b *Bus, t Topic[T], buffer int) (<-chan T, *Subscription) {
	ch := make(chan T, buffer)
	sub := Subscribe(b, t, func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	return ch, sub
}

// Publish delivers v to every handler of t and returns how many received it.
func Publish[T any](b *Bus, t Topic[T], v T) int {
	b.mu.RLock()
	hs := make([]handler, len(b.subs[t.Name]))
	copy(hs, b.subs[t.Name])
	b.mu.RUnlock()

	n := 0
	for _, h := range hs {
		if fn, ok := h.fn.(func(T)); ok {
			fn(v)
			n++
		}
	}
	return n
}

// Subscribers returns the number of handlers on topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Bus) remove(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.subs[topic]
	for i, h := range hs {
		if h.id == id {
			b.subs[topic] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}
