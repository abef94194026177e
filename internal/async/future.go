// package async provides settle-once futures and cancelable continuations used to sequence
// provider loading and play attempts.
package async

import (
	"context"
	"sync"
)

// Void is the value carried by futures that only signal completion.
type Void = struct{}

// Future is the eventual result of an asynchronous operation. It settles exactly once.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	var zero T
	f := newFuture[T]()
	f.settle(zero, err)
	return f
}

// Done returns a channel closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has a result without blocking.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Deferred is a future settled by hand, typically from a callback or a worker goroutine.
type Deferred[T any] struct {
	future *Future[T]
}

// NewDeferred creates an unsettled [Deferred].
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{future: newFuture[T]()}
}

// Future returns the future settled by d.
func (d *Deferred[T]) Future() *Future[T] {
	return d.future
}

// Resolve settles the future with v. Later calls are ignored.
func (d *Deferred[T]) Resolve(v T) {
	d.future.settle(v, nil)
}

// Reject settles the future with err. Later calls are ignored.
func (d *Deferred[T]) Reject(err error) {
	var zero T
	d.future.settle(zero, err)
}

// Then runs fn with the value of f once it resolves. A rejection of f skips fn and propagates.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := newFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero U
			next.settle(zero, f.err)
			return
		}
		v, err := fn(f.value)
		next.settle(v, err)
	}()
	return next
}

// ThenFuture is [Then] for continuations that are themselves asynchronous.
func ThenFuture[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	next := newFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero U
			next.settle(zero, f.err)
			return
		}
		inner := fn(f.value)
		if inner == nil {
			var zero U
			next.settle(zero, nil)
			return
		}
		<-inner.done
		next.settle(inner.value, inner.err)
	}()
	return next
}

// Recover converts a rejection of f into a resolved zero value.
func Recover[T any](f *Future[T]) *Future[T] {
	next := newFuture[T]()
	go func() {
		<-f.done
		next.settle(f.value, nil)
	}()
	return next
}

// OrResolved returns f, or a resolved future when f is nil.
//
// Providers return nil from Load and Play when the operation completed synchronously.
func OrResolved(f *Future[Void]) *Future[Void] {
	if f == nil {
		return Resolved(Void{})
	}
	return f
}
