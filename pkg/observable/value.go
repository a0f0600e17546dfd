// Package observable provides a value holder that pushes every update to its
// subscribers and replays the latest value to late subscribers.
package observable

import (
	"sync"
)

// Value holds the latest published value of type T.
//
// Each subscriber receives updates in publication order on its own delivery
// goroutine, so callbacks may block or call back into the publisher without
// stalling other subscribers.
type Value[T any] struct {
	mu     sync.Mutex
	value  T
	set    bool
	nextID uint64
	subs   map[uint64]*subscriber[T]
}

// Observable is the read-only view of a Value handed to consumers.
type Observable[T any] interface {
	// Get returns the latest value and whether one was ever published.
	Get() (T, bool)

	// Subscribe registers fn for every future update. When a value has been
	// published already it is replayed to fn first. The returned function
	// unsubscribes; updates queued but not yet delivered are dropped.
	Subscribe(fn func(T)) (unsubscribe func())
}

// NewValue creates a Value with nothing published yet.
func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[uint64]*subscriber[T])}
}

// Set publishes v to all subscribers.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.value = val
	v.set = true
	for _, s := range v.subs {
		s.enqueue(val)
	}
}

// Get returns the latest value and whether one was ever published.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.set
}

// Subscribe registers fn; see Observable.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	s := newSubscriber(fn)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = s
	if v.set {
		s.enqueue(v.value)
	}
	v.mu.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
			s.stop()
		})
	}
}

// Close unsubscribes everyone.
func (v *Value[T]) Close() {
	v.mu.Lock()
	subs := v.subs
	v.subs = make(map[uint64]*subscriber[T])
	v.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// Subscribers returns the number of active subscribers.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

type subscriber[T any] struct {
	fn    func(T)
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscriber[T any](fn func(T)) *subscriber[T] {
	return &subscriber[T]{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber[T]) enqueue(val T) {
	s.mu.Lock()
	s.queue = append(s.queue, val)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			val := s.queue[0]
			var zero T
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(val)
		}
	}
}
