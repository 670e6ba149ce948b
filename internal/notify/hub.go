// Package notify fans events out to subscribers. Every subscriber receives
// every event published after it subscribed, in publish order. Slow
// subscribers are buffered rather than dropped.
package notify

import "sync"

// Hub broadcasts values of type T to its subscriptions.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]*Subscription[T]), nextID: 1}
}

// Subscribe registers a new subscription. Subscribing to a closed hub
// returns a subscription whose channel is already closed.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	s := newSubscription(h)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.finish()
		go s.pump()
		return s
	}
	s.id = h.nextID
	h.nextID++
	h.subs[s.id] = s
	h.mu.Unlock()

	go s.pump()

	return s
}

// Publish queues v for every current subscriber. It never blocks on a
// subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, s := range h.subs {
		s.enqueue(v)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription after its queued values are delivered.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		s.finish()
		delete(h.subs, id)
	}
}

func (h *Hub[T]) remove(id uint64) {
	if id == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Subscription is a single consumer of a Hub.
type Subscription[T any] struct {
	id  uint64 // zero when never registered
	hub *Hub[T]
	out chan T

	mu       sync.Mutex
	queue    []T
	finished bool
	signal   chan struct{}

	done     chan struct{}
	stopOnce sync.Once
}

func newSubscription[T any](h *Hub[T]) *Subscription[T] {
	return &Subscription[T]{
		hub:    h,
		out:    make(chan T),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Events returns the delivery channel. It is closed after Unsubscribe or
// after the hub is closed and the backlog is drained.
func (s *Subscription[T]) Events() <-chan T {
	return s.out
}

// Unsubscribe stops delivery and discards undelivered values. It is safe to
// call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.stopOnce.Do(func() {
		s.hub.remove(s.id)
		close(s.done)
	})
}

func (s *Subscription[T]) enqueue(v T) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription[T]) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription[T]) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		finished := s.finished
		s.mu.Unlock()

		for _, v := range batch {
			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}

		if len(batch) > 0 {
			continue
		}
		if finished {
			return
		}

		select {
		case <-s.signal:
		case <-s.done:
			return
		}
	}
}
