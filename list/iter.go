package list

import "iter"

// IntoIter yields the elements of a list by value, taking them out of the list.
type IntoIter[T any] struct {
	l List[T]
}

// IntoIter moves the elements of l into a consuming iterator. l is left empty.
func (l *List[T]) IntoIter() *IntoIter[T] {
	it := &IntoIter[T]{}
	it.l.Append(l)

	return it
}

// Next pops the next element. It returns false once the iterator is exhausted.
func (it *IntoIter[T]) Next() (T, bool) { //nolint:ireturn
	return it.l.Pop()
}

// Remaining returns the number of elements not yet yielded.
func (it *IntoIter[T]) Remaining() int {
	return it.l.Len()
}

// Iter yields the elements of a list without modifying it.
// The list must not be changed while the iterator is in use.
type Iter[T any] struct {
	next      *node[T]
	remaining int
}

// Iter returns a read-only iterator positioned at the first element.
func (l *List[T]) Iter() *Iter[T] {
	return &Iter[T]{next: l.head, remaining: l.len}
}

// Next returns the current element and advances.
func (it *Iter[T]) Next() (T, bool) { //nolint:ireturn
	if it.next == nil {
		var zero T
		return zero, false
	}

	e := it.next
	it.next = e.next
	it.remaining--

	return e.val, true
}

// Remaining returns the number of elements not yet yielded.
func (it *Iter[T]) Remaining() int {
	return it.remaining
}

// IterMut yields a pointer to each element of a list so it can be updated in place.
// The list must not be changed structurally while the iterator is in use.
type IterMut[T any] struct {
	next      *node[T]
	remaining int
}

// IterMut returns a mutable iterator positioned at the first element.
func (l *List[T]) IterMut() *IterMut[T] {
	return &IterMut[T]{next: l.head, remaining: l.len}
}

// Next returns a pointer to the current element and advances.
func (it *IterMut[T]) Next() (*T, bool) {
	e := it.next
	if e == nil {
		return nil, false
	}

	it.next = e.next
	it.remaining--

	return &e.val, true
}

// Remaining returns the number of elements not yet yielded.
func (it *IterMut[T]) Remaining() int {
	return it.remaining
}

// All returns an iterator for all elements in the list.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for e := l.head; e != nil; e = e.next {
			if !yield(e.val) {
				return
			}
		}
	}
}

// AllMut returns an iterator for pointers to all elements in the list.
func (l *List[T]) AllMut() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for e := l.head; e != nil; e = e.next {
			if !yield(&e.val) {
				return
			}
		}
	}
}

// Drain returns an iterator that pops elements until the list is empty.
// Stopping early leaves the rest of the elements in the list.
func (l *List[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := l.Pop()
			if !ok || !yield(v) {
				return
			}
		}
	}
}
