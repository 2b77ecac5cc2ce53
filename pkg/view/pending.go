package view

import (
	"context"
	"sync"
)

// Pending is the capability interface for values that resolve later.
// It replaces structural "has a callable then" probing: a value is
// asynchronous exactly when it implements Pending, regardless of how it was
// produced. The renderers treat any Pending property, child, or component
// result as the signal to escalate that subtree to the asynchronous path.
type Pending interface {
	// Await blocks until the value resolves or ctx is done.
	Await(ctx context.Context) (any, error)
}

// IsPending reports whether v is an asynchronous value.
func IsPending(v any) bool {
	_, ok := v.(Pending)
	return ok
}

// Future is a single-assignment asynchronous value implementing Pending.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture creates an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve fulfills the future. Later calls to Resolve or Reject are ignored.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Reject fails the future. Later calls to Resolve or Reject are ignored.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Await implements Pending.
func (f *Future[T]) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return f.val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved returns an already-fulfilled future.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Rejected returns an already-failed future.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Go runs fn in its own goroutine and returns a future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}
