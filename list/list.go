package list

import (
	"iter"

	"github.com/percona/linkseq/errors"
)

// ErrCorrupted is returned by [List.Validate] when the chain does not match the list
// bookkeeping.
var ErrCorrupted = errors.New("corrupted list")

// Order selects the end that [List.Push] inserts at.
type Order int

const (
	// FIFO pushes after the last element. Pop returns elements in push order.
	FIFO Order = iota
	// LIFO pushes before the first element. Pop returns elements in reverse push order.
	LIFO
)

func (o Order) String() string {
	switch o {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	}

	return "unknown"
}

// List is a singly linked list with a reference to the last node.
//
// The zero value is an empty FIFO list. A List is not safe for concurrent use.
type List[T any] struct {
	head  *node[T]
	tail  *node[T] // last node of the head chain. never owns it.
	len   int
	order Order
}

// node is an element in the singly linked list.
type node[T any] struct {
	next *node[T]
	val  T
}

// New returns an empty list that pushes in the given order.
func New[T any](order Order) *List[T] {
	return &List[T]{order: order}
}

// From returns a FIFO list holding vals in order.
func From[T any](vals ...T) *List[T] {
	l := &List[T]{}
	for _, v := range vals {
		l.Push(v)
	}

	return l
}

// Collect returns a FIFO list holding every value produced by seq in order.
func Collect[T any](seq iter.Seq[T]) *List[T] {
	l := &List[T]{}
	l.Extend(seq)

	return l
}

// Order returns the push order of the list.
func (l *List[T]) Order() Order {
	return l.order
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int {
	return l.len
}

// IsEmpty checks if the list is empty.
func (l *List[T]) IsEmpty() bool {
	return l.len == 0
}

// Push adds a new element to the list.
func (l *List[T]) Push(val T) {
	elem := &node[T]{val: val}

	switch {
	case l.head == nil:
		l.head = elem
		l.tail = elem
	case l.order == LIFO:
		elem.next = l.head
		l.head = elem
	default:
		l.tail.next = elem
		l.tail = elem
	}

	l.len++
}

// Pop removes and returns the first element from the list.
func (l *List[T]) Pop() (T, bool) { //nolint:ireturn
	if l.head == nil {
		var zero T
		return zero, false
	}

	elem := l.head
	l.head = elem.next
	if l.head == nil {
		l.tail = nil
	}
	l.len--

	val := elem.val
	var zero T
	elem.val = zero
	elem.next = nil

	return val, true
}

// Peek returns the first element without removing it.
func (l *List[T]) Peek() (T, bool) { //nolint:ireturn
	if l.head == nil {
		var zero T
		return zero, false
	}

	return l.head.val, true
}

// PeekMut returns a pointer to the first element, or nil if the list is empty.
// The pointer is valid until the element is popped.
func (l *List[T]) PeekMut() *T {
	if l.head == nil {
		return nil
	}

	return &l.head.val
}

// Append moves all elements of other to the end of l in constant time.
// other is left empty. The push order of l is kept.
func (l *List[T]) Append(other *List[T]) {
	if other == nil || other == l || other.head == nil {
		return
	}

	if l.head == nil {
		l.head, l.tail, l.len = other.head, other.tail, other.len
		other.reset()
		return
	}

	l.tail.next = other.head
	l.tail = other.tail
	l.len += other.len
	other.reset()
}

// Extend pushes every value produced by seq.
func (l *List[T]) Extend(seq iter.Seq[T]) {
	if seq == nil {
		return
	}

	for v := range seq {
		l.Push(v)
	}
}

// Clear removes all elements from the list.
func (l *List[T]) Clear() {
	l.reset()
}

// Values returns the elements from head to tail in a new slice.
func (l *List[T]) Values() []T {
	vals := make([]T, 0, l.len)
	for e := l.head; e != nil; e = e.next {
		vals = append(vals, e.val)
	}

	return vals
}

// Validate walks the chain and checks it against the list bookkeeping.
func (l *List[T]) Validate() error {
	if l.head == nil || l.tail == nil || l.len == 0 {
		if l.head != nil || l.tail != nil || l.len != 0 {
			return errors.Wrapf(ErrCorrupted, "partially empty: head=%t tail=%t len=%d",
				l.head != nil, l.tail != nil, l.len)
		}

		return nil
	}

	count := 0
	last := l.head
	for e := l.head; e != nil; e = e.next {
		count++
		last = e

		if count > l.len {
			return errors.Wrapf(ErrCorrupted, "chain is longer than len %d", l.len)
		}
	}

	if count != l.len {
		return errors.Wrapf(ErrCorrupted, "chain has %d nodes, len is %d", count, l.len)
	}

	if last != l.tail {
		return errors.Wrap(ErrCorrupted, "tail is not the last node")
	}

	return nil
}

// reset drops the chain. The push order is kept.
func (l *List[T]) reset() {
	l.head = nil
	l.tail = nil
	l.len = 0
}
