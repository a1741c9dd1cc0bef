// Package race composes concurrent awaitables into a first-settled-wins result.
//
// Information Hiding:
// - Goroutine fan-out and result channel hidden
// - Loser cancellation hidden: losers see their context cancelled and their
//   late results are dropped without blocking
// - Tie-breaking rule: a done parent context beats a result that settled in
//   the same instant
// - A panicking task settles with a *PanicError instead of crashing

package race

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the error settled by timer tasks created with After.
var ErrTimeout = errors.New("timed out")

// PanicError is the error settled by a task that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a unit of work that can take part in a race.
// Tasks must return promptly once ctx is done.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task that settled first.
type Result[T any] struct {
	Index int // position of the winning task in the argument list
	Value T
	Err   error
}

// First runs every task concurrently and returns the first one to settle,
// whether it settled with a value or an error.
//
// If ctx is done before any task settles, or is found done right after a
// task settles, First returns ctx.Err(). Losing tasks have their context
// cancelled when First returns; their results are discarded.
func First[T any](ctx context.Context, tasks ...Task[T]) (Result[T], error) {
	if err := ctx.Err(); err != nil {
		return Result[T]{}, err
	}
	if len(tasks) == 0 {
		return Result[T]{}, errors.New("race: no tasks")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so losers never block after First has returned.
	settled := make(chan Result[T], len(tasks))
	for i, task := range tasks {
		go func(i int, task Task[T]) {
			settled <- run(raceCtx, i, task)
		}(i, task)
	}

	select {
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	case r := <-settled:
		if err := ctx.Err(); err != nil {
			return Result[T]{}, err
		}
		return r, nil
	}
}

func run[T any](ctx context.Context, i int, task Task[T]) (r Result[T]) {
	r.Index = i
	defer func() {
		if p := recover(); p != nil {
			var zero T
			r.Value, r.Err = zero, &PanicError{Value: p}
		}
	}()
	r.Value, r.Err = task(ctx)
	return r
}

// After returns a task that settles with err once d has elapsed.
// It settles early with ctx.Err() if its context is cancelled first.
func After[T any](d time.Duration, err error) Task[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// WithTimeout races task against a timer of duration d and against ctx.
// It returns ErrTimeout if the timer wins.
func WithTimeout[T any](ctx context.Context, d time.Duration, task Task[T]) (T, error) {
	r, err := First(ctx, task, After[T](d, ErrTimeout))
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Value, r.Err
}

// Await runs task and waits for it or for ctx, whichever comes first.
// A task that ignores ctx keeps running in the background but its result
// is discarded.
func Await[T any](ctx context.Context, task Task[T]) (T, error) {
	r, err := First(ctx, task)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Value, r.Err
}
