package broadcast

import "sync"

// Hub multicasts published values to every live Subscription.
//
// Thread-safety: all methods are safe for concurrent use. Publish order is
// preserved per subscriber.
type Hub[T any] struct {
	mu       sync.Mutex
	subs     map[*Subscription[T]]struct{}
	replay   bool
	retained T
	closed   bool
}

// New creates a hub without replay: subscribers only see values published
// after they subscribed.
func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

// NewReplay creates a hub that retains the latest value, starting with
// initial. Each new subscriber receives the retained value first.
func NewReplay[T any](initial T) *Hub[T] {
	h := New[T]()
	h.replay = true
	h.retained = initial
	return h
}

// Publish delivers v to every current subscriber.
// Returns false if the hub is closed.
func (h *Hub[T]) Publish(v T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.replay {
		h.retained = v
	}
	for s := range h.subs {
		s.queue.Enqueue(v)
	}
	return true
}

// Subscribe registers a new cursor.
//
// Subscribing to a closed hub is allowed: the subscription replays the
// retained value (if any) and then completes.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		hub:   h,
		queue: NewQueue[T](),
		out:   make(chan T),
		stop:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.replay {
		s.queue.Enqueue(h.retained)
	}
	if h.closed {
		s.queue.Close()
	} else {
		h.subs[s] = struct{}{}
	}
	h.mu.Unlock()

	go s.pump()
	return s
}

// Close completes every subscription. Buffered values are still delivered.
// Idempotent.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.queue.Close()
	}
	h.subs = nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub[T]) remove(s *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

// Subscription is one subscriber's cursor into a Hub.
type Subscription[T any] struct {
	hub   *Hub[T]
	queue *Queue[T]
	out   chan T
	stop  chan struct{}
	once  sync.Once
}

// C returns the delivery channel. It is closed when the hub closes (after
// buffered values are drained) or when Cancel is called.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Cancel detaches the subscription and drops anything still buffered.
// Idempotent.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.queue.Close()
		close(s.stop)
	})
}

// pump moves values from the cursor queue to the delivery channel.
func (s *Subscription[T]) pump() {
	defer close(s.out)

	for {
		if v, ok := s.queue.TryDequeue(); ok {
			select {
			case s.out <- v:
			case <-s.stop:
				return
			}
			continue
		}

		select {
		case <-s.stop:
			return
		case <-s.queue.Wait():
			if s.queue.Drained() {
				return
			}
		}
	}
}
