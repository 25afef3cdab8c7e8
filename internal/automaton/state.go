package automaton

import (
	"sync"

	"github.com/roach88/automaton/internal/broadcast"
)

// StateStore is the automaton's single current-state cell.
//
// Only the run loop writes it (update is unexported). Reads may come from
// any goroutine, so the value is guarded, and updates are published under
// the same lock so a subscriber never sees values out of order.
type StateStore[S any] struct {
	mu    sync.RWMutex
	value S
	hub   *broadcast.Hub[S]
}

func newStateStore[S any](initial S) *StateStore[S] {
	return &StateStore[S]{
		value: initial,
		hub:   broadcast.NewReplay(initial),
	}
}

// Read returns the current state.
func (s *StateStore[S]) Read() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Subscribe returns a cursor that receives the current state immediately and
// every later update. It completes after the automaton is torn down.
func (s *StateStore[S]) Subscribe() *broadcast.Subscription[S] {
	return s.hub.Subscribe()
}

// update is called only by the reply emitter on a successful transition.
func (s *StateStore[S]) update(v S) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.hub.Publish(v)
}

func (s *StateStore[S]) close() {
	s.hub.Close()
}
