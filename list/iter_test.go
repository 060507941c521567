package list //nolint:testpackage

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntoIter(t *testing.T) {
	t.Parallel()

	l := From(1, 2, 3)
	it := l.IntoIter()

	assert.True(t, l.IsEmpty())
	require.NoError(t, l.Validate())
	assert.Equal(t, 3, it.Remaining())

	for _, want := range []int{1, 2, 3} {
		got, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	for range 3 {
		_, ok := it.Next()
		assert.False(t, ok)
	}
	assert.Equal(t, 0, it.Remaining())

	l.Push(4)
	_, ok := it.Next()
	assert.False(t, ok, "iterator must not see pushes to its former list")
}

func TestIter(t *testing.T) {
	t.Parallel()

	l := New[int](LIFO)
	l.Push(1)
	l.Push(2)
	l.Push(3)

	it := l.Iter()
	for i, want := range []int{3, 2, 1} {
		assert.Equal(t, 3-i, it.Remaining())

		got, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := it.Next()
	assert.False(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)

	assert.Equal(t, 3, l.Len())
	require.NoError(t, l.Validate())
}

func TestIterMut(t *testing.T) {
	t.Parallel()

	l := From(1, 2, 3)

	it := l.IterMut()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		*p *= 2
	}

	p, ok := it.Next()
	assert.False(t, ok)
	assert.Nil(t, p)

	require.NoError(t, l.Validate())
	assert.Equal(t, []int{2, 4, 6}, slices.Collect(l.Drain()))
}

func TestRangeFunc(t *testing.T) {
	t.Parallel()

	t.Run("all", func(t *testing.T) {
		t.Parallel()

		l := From("x", "y", "z")

		var got []string
		for v := range l.All() {
			got = append(got, v)
			if v == "y" {
				break
			}
		}

		assert.Equal(t, []string{"x", "y"}, got)
		assert.Equal(t, 3, l.Len())
	})

	t.Run("all mut", func(t *testing.T) {
		t.Parallel()

		l := From(1, 2, 3)
		for p := range l.AllMut() {
			*p += 10
		}

		assert.Equal(t, []int{11, 12, 13}, l.Values())
	})

	t.Run("drain stops early", func(t *testing.T) {
		t.Parallel()

		l := From(1, 2, 3, 4)
		for v := range l.Drain() {
			if v == 2 {
				break
			}
		}

		require.NoError(t, l.Validate())
		assert.Equal(t, []int{3, 4}, l.Values())
	})

	t.Run("drain all", func(t *testing.T) {
		t.Parallel()

		l := From(1, 2, 3)
		n := l.Len()

		got := slices.Collect(l.Drain())
		assert.Len(t, got, n)
		assert.True(t, l.IsEmpty())
		require.NoError(t, l.Validate())
	})
}
