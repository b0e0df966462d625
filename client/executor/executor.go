// Package executor provides the schedulers that asynchronous calls and
// their callbacks run on.
//
// Three implementations are provided:
//   - [Inline] runs each unit of work on the submitting goroutine.
//   - [Pool] runs each unit on its own goroutine, bounded by a semaphore.
//   - [Serial] runs units one at a time, in submission order, on a single worker.
//
// Any type with a Submit(func()) error method satisfies [Executor].
package executor

import (
	"errors"
)

// ErrShutdown is returned by Submit once an executor stopped accepting work.
var ErrShutdown = errors.New("executor shut down")

// Executor schedules a unit of work. Submit returns an error only when the
// work was rejected, in which case it never runs.
type Executor interface {
	Submit(fn func()) error
}

// Func adapts a function to the [Executor] interface.
type Func func(fn func()) error

func (f Func) Submit(fn func()) error {
	return f(fn)
}

type inline struct{}

// Inline returns an Executor that runs work immediately on the caller.
func Inline() Executor {
	return inline{}
}

func (inline) Submit(fn func()) error {
	fn()
	return nil
}
