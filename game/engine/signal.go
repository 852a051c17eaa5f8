package engine

import (
	"context"
	"sync"
)

// signal is a named in-flight marker. While active, waiters block on a
// channel that is closed when the marker is cleared.
type signal struct {
	name   string
	mu     sync.Mutex
	active bool
	idle   chan struct{}
}

func newSignal(name string) *signal {
	idle := make(chan struct{})
	close(idle)
	return &signal{name: name, idle: idle}
}

func (s *signal) enter() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		panic("engine: " + s.name + " entered while already in flight")
	}
	s.active = true
	s.idle = make(chan struct{})
}

func (s *signal) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		panic("engine: " + s.name + " cleared while not in flight")
	}
	s.active = false
	close(s.idle)
}

// Active reports whether the marker is currently set
func (s *signal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// wait blocks until the marker is clear or ctx is done
func (s *signal) wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
