package async

import "sync"

// Cancelable wraps a producer so the reaction to an earlier operation can be suppressed.
//
// Canceling never interrupts the operation the task was chained from, nor a producer that
// is already running. It only guarantees the producer is not started afterwards.
type Cancelable[T any] struct {
	mu       sync.Mutex
	producer func() *Future[T]
	canceled bool
	result   *Future[T]
}

// NewCancelable creates a task that runs producer at most once.
func NewCancelable[T any](producer func() *Future[T]) *Cancelable[T] {
	return &Cancelable[T]{producer: producer}
}

// Run invokes the producer and returns its future. A canceled task returns a resolved zero
// future without invoking the producer; a task that already ran returns the first result.
func (c *Cancelable[T]) Run() *Future[T] {
	c.mu.Lock()
	if c.canceled {
		c.mu.Unlock()
		var zero T
		return Resolved(zero)
	}
	if c.result != nil {
		result := c.result
		c.mu.Unlock()
		return result
	}

	pending := NewDeferred[T]()
	c.result = pending.Future()
	producer := c.producer
	c.mu.Unlock()

	var out *Future[T]
	if producer != nil {
		out = producer()
	}
	if out == nil {
		var zero T
		pending.Resolve(zero)
		return pending.Future()
	}

	go func() {
		<-out.done
		pending.future.settle(out.value, out.err)
	}()
	return pending.Future()
}

// Cancel marks the task canceled. It is safe to call more than once.
func (c *Cancelable[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = true
}

// Canceled reports whether [Cancelable.Cancel] was called.
func (c *Cancelable[T]) Canceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// Noop returns a task with an empty producer, used to seed controller slots.
func Noop() *Cancelable[Void] {
	return NewCancelable(func() *Future[Void] { return nil })
}
