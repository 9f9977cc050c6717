package pubsub

import "sync"

// Hub fans snapshots out to subscribers. A slow subscriber only ever holds the
// most recent values: when its buffer is full the oldest pending value is dropped.
type Hub[T any] struct {
	mu          sync.Mutex
	buffer      int
	subscribers map[chan T]struct{}
	closed      bool
}

func NewHub[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub[T]{
		buffer:      buffer,
		subscribers: make(map[chan T]struct{}),
	}
}

// Subscribe registers a channel seeded with initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub[T]) Subscribe(initial T) (<-chan T, func()) {
	ch := make(chan T, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ch <- initial
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	ch <- initial
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later subscriptions receive only their initial value.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
