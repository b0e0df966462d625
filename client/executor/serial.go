package executor

import (
	"sync"
)

// Serial runs submitted work one unit at a time, in submission order, on a
// single worker goroutine. The queue is unbounded so Submit never waits on
// running work.
type Serial struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewSerial starts the worker. Call [Serial.Close] to stop it.
func NewSerial() *Serial {
	s := &Serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.run()

	return s
}

// Submit enqueues fn. It fails with [ErrShutdown] after [Serial.Close].
func (s *Serial) Submit(fn func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShutdown
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	s.signal()
	return nil
}

// Close rejects further submissions and blocks until the queued work drained.
// It is safe to call more than once.
func (s *Serial) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.signal()
	<-s.done
}

func (s *Serial) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Serial) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			<-s.wake
			continue
		}

		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}
