package workq_test

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/list"
	"github.com/percona/linkseq/workq"
)

func TestQueue(t *testing.T) {
	t.Parallel()

	t.Run("fifo", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_fifo")
		require.NoError(t, q.Push(1))
		require.NoError(t, q.Push(2))
		require.NoError(t, q.Push(3))
		assert.Equal(t, 3, q.Len())

		for _, want := range []int{1, 2, 3} {
			got, err := q.Pop(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		_, ok := q.TryPop()
		assert.False(t, ok)
	})

	t.Run("push list", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_push_list")
		require.NoError(t, q.Push(1))

		batch := list.From(2, 3, 4)
		require.NoError(t, q.PushList(batch))
		assert.True(t, batch.IsEmpty())
		require.NoError(t, q.PushList(batch))

		drained := q.Drain()
		require.NoError(t, drained.Validate())
		assert.Equal(t, []int{1, 2, 3, 4}, drained.Values())
		assert.Equal(t, 0, q.Len())
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		q := workq.New[string]("test_closed")
		require.NoError(t, q.Push("a"))
		q.Close()
		q.Close()

		assert.ErrorIs(t, q.Push("b"), workq.ErrClosed)

		batch := list.From("c")
		assert.ErrorIs(t, q.PushList(batch), workq.ErrClosed)
		assert.Equal(t, 1, batch.Len())

		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		_, err = q.Pop(context.Background())
		assert.ErrorIs(t, err, workq.ErrClosed)
	})

	t.Run("pop waits", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_wait")
		got := make(chan int)

		go func() {
			v, err := q.Pop(context.Background())
			if err == nil {
				got <- v
			}
			close(got)
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, q.Push(7))

		select {
		case v := <-got:
			assert.Equal(t, 7, v)
		case <-time.After(time.Second):
			t.Fatal("pop did not wake up")
		}
	})

	t.Run("pop canceled", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_cancel")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := q.Pop(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("close wakes waiters", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_close_wake")
		errs := make(chan error, 2)

		for range 2 {
			go func() {
				_, err := q.Pop(context.Background())
				errs <- err
			}()
		}

		time.Sleep(10 * time.Millisecond)
		q.Close()

		for range 2 {
			select {
			case err := <-errs:
				assert.ErrorIs(t, err, workq.ErrClosed)
			case <-time.After(time.Second):
				t.Fatal("close did not wake up waiter")
			}
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("process all", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_run")
		for i := range 100 {
			require.NoError(t, q.Push(i))
		}
		q.Close()

		var mu sync.Mutex
		var seen []int

		err := workq.Run(context.Background(), q, 4, func(_ context.Context, v int) error {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)

		slices.Sort(seen)
		assert.Len(t, seen, 100)
		for i, v := range seen {
			assert.Equal(t, i, v)
		}
	})

	t.Run("handler error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		q := workq.New[int]("test_run_error")
		for i := range 10 {
			require.NoError(t, q.Push(i))
		}

		var calls atomic.Int32
		err := workq.Run(context.Background(), q, 2, func(_ context.Context, v int) error {
			calls.Add(1)
			if v == 3 {
				return errBoom
			}
			return nil
		})
		require.ErrorIs(t, err, errBoom)
		assert.GreaterOrEqual(t, calls.Load(), int32(4))
	})

	t.Run("context canceled", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_run_cancel")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := workq.Run(ctx, q, 0, func(context.Context, int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		t.Parallel()

		q := workq.New[int]("test_run_cancel_wait")
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := workq.Run(ctx, q, 3, func(context.Context, int) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("idle workers stop on handler error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		q := workq.New[int]("test_run_idle")
		require.NoError(t, q.Push(1))

		done := make(chan error, 1)
		go func() {
			done <- workq.Run(context.Background(), q, 4, func(context.Context, int) error {
				return errBoom
			})
		}()

		select {
		case err := <-done:
			require.ErrorIs(t, err, errBoom)
			assert.NotErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("idle workers did not stop")
		}
	})
}

func TestPopTrace(t *testing.T) { //nolint:paralleltest
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	zl := zerolog.New(&buf).Level(zerolog.TraceLevel)
	ctx := zl.WithContext(context.Background())

	q := workq.New[int]("test_trace")
	require.NoError(t, q.Push(1))

	_, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `popped from \"test_trace\", 0 left`)

	q.Close()
	_, err = q.Pop(ctx)
	require.ErrorIs(t, err, workq.ErrClosed)
	assert.Contains(t, buf.String(), "is closed and empty")
}
