// Package workq provides an unbounded FIFO work queue safe for concurrent use.
//
// Items are kept in a [list.List] guarded by a mutex, so a whole batch can be handed
// over in constant time with [Queue.PushList] and [Queue.Drain].
package workq

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/list"
	"github.com/percona/linkseq/log"
	"github.com/percona/linkseq/metrics"
)

// ErrClosed is returned when pushing to a closed queue or popping from a closed and
// empty queue.
var ErrClosed = errors.New("queue closed")

// Handler processes one item taken from a queue.
type Handler[T any] func(ctx context.Context, item T) error

type Queue[T any] struct {
	name string

	mu     sync.Mutex
	items  list.List[T]
	wakeup chan struct{} // closed and replaced whenever items arrive or the queue closes
	closed bool
}

// New returns an empty open queue. The name labels logs and metrics.
func New[T any](name string) *Queue[T] {
	return &Queue[T]{
		name:   name,
		wakeup: make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *Queue[T]) Name() string {
	return q.name
}

// Len returns the number of waiting items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.items.Len()
}

// Push adds an item to the end of the queue.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items.Push(item)
	q.notifyLocked(1)

	return nil
}

// PushList moves all items of l to the end of the queue in constant time.
// l is left empty. On a closed queue l is left untouched.
func (q *Queue[T]) PushList(l *list.List[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	n := l.Len()
	if n == 0 {
		return nil
	}

	q.items.Append(l)
	q.notifyLocked(n)

	return nil
}

// TryPop removes and returns the first item without waiting.
func (q *Queue[T]) TryPop() (T, bool) { //nolint:ireturn
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.popLocked()
}

// Pop removes and returns the first item. It waits until an item is available, the
// queue is closed, or ctx is done. Items pushed before Close are still returned.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) { //nolint:ireturn
	for {
		q.mu.Lock()
		item, ok := q.popLocked()
		left := q.items.Len()
		closed, wakeup := q.closed, q.wakeup
		q.mu.Unlock()

		if ok {
			log.Tracef(ctx, "popped from %q, %d left", q.name, left)
			return item, nil
		}

		if closed {
			log.Tracef(ctx, "%q is closed and empty", q.name)
			var zero T
			return zero, ErrClosed
		}

		log.Tracef(ctx, "%q is empty, waiting", q.name)

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err() //nolint:wrapcheck
		case <-wakeup:
		}
	}
}

// Drain removes all waiting items and returns them as a list in constant time.
func (q *Queue[T]) Drain() *list.List[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := &list.List[T]{}
	n := q.items.Len()
	out.Append(&q.items)

	if n != 0 {
		metrics.AddQueuePopped(q.name, n)
		metrics.SetQueueDepth(q.name, 0)
	}

	return out
}

// Close stops the queue from accepting items and wakes all waiting consumers.
// Calling Close more than once has no effect.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.wakeup)
}

func (q *Queue[T]) popLocked() (T, bool) { //nolint:ireturn
	item, ok := q.items.Pop()
	if ok {
		metrics.AddQueuePopped(q.name, 1)
		metrics.SetQueueDepth(q.name, q.items.Len())
	}

	return item, ok
}

func (q *Queue[T]) notifyLocked(n int) {
	metrics.AddQueuePushed(q.name, n)
	metrics.SetQueueDepth(q.name, q.items.Len())

	close(q.wakeup)
	q.wakeup = make(chan struct{})
}

// Run starts workers that pop items from q and pass them to fn. It returns nil once q
// is closed and empty, or the first error from fn or ctx. The first error from fn
// cancels the context passed to the other workers, which then stop without error.
func Run[T any](ctx context.Context, q *Queue[T], workers int, fn Handler[T]) error {
	if workers < 1 {
		workers = 1
	}

	ctx = log.WithAttrs(ctx, log.Scope("workq"), log.Queue(q.Name()))
	grp, grpCtx := errgroup.WithContext(ctx)

	for i := range workers {
		grp.Go(func() error {
			wctx := log.WithAttrs(grpCtx, log.Worker(i))
			log.Trace(wctx, "worker started")

			for {
				item, err := q.Pop(wctx)
				if err != nil {
					if errors.IsAny(err, ErrClosed, context.Canceled) {
						log.Tracef(wctx, "worker stopped: %v", err)
						return nil
					}

					return err
				}

				err = fn(wctx, item)
				if err != nil {
					return errors.Wrapf(err, "worker %d", i)
				}
			}
		})
	}

	err := grp.Wait()
	if err == nil {
		// workers stop quietly on cancellation. report it if it came from the caller.
		err = ctx.Err()
	}
	if err != nil {
		log.Error(ctx, err, "workers failed")
	}

	return err //nolint:wrapcheck
}
