package executor

import (
	"sync"
)

// Pool runs every submitted unit of work on its own goroutine. At most
// maxConcurrent units run at once; the rest wait for a slot without
// blocking Submit.
type Pool struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown bool
}

// NewPool creates a Pool with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewPool(maxConcurrent int) *Pool {
	p := &Pool{}
	if maxConcurrent > 0 {
		p.sem = make(chan struct{}, maxConcurrent)
	}
	return p
}

// Submit schedules fn. It fails with [ErrShutdown] after [Pool.Shutdown].
func (p *Pool) Submit(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return ErrShutdown
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() {
				<-p.sem
			}()
		}

		fn()
	}()

	return nil
}

// Wait blocks until every submitted unit of work completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown rejects further submissions. Work already submitted still runs.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
}
