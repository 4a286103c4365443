// Package storetest is a conformance suite for deque.Store implementations.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/deque/pkg/deque"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) deque.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s deque.Store)
	}{
		{"PushEnds", testPushEnds},
		{"PopEnds", testPopEnds},
		{"MoveIsAtomicTransfer", testMove},
		{"BlockingMoveTimeout", testBlockingMoveTimeout},
		{"BlockingMoveWakes", testBlockingMoveWakes},
		{"BlockingMoveCancel", testBlockingMoveCancel},
		{"Remove", testRemove},
		{"RangeIndexes", testRange},
		{"Delete", testDelete},
		{"ConcurrentMovesDeliverOnce", testConcurrentMoves},
		{"DequeRoundTrip", testDequeRoundTrip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func values(t *testing.T, s deque.Store, list string) []string {
	t.Helper()
	items, err := s.Range(context.Background(), list, 0, -1)
	require.NoError(t, err)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out
}

func testPushEnds(t *testing.T, s deque.Store) {
	ctx := context.Background()
	n, err := s.Len(ctx, "l")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Push(ctx, "l", deque.Head, []byte("b"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = s.Push(ctx, "l", deque.Head, []byte("a"))
	require.NoError(t, err)
	n, err = s.Push(ctx, "l", deque.Tail, []byte("c"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	assert.Equal(t, []string{"a", "b", "c"}, values(t, s, "l"))
	n, err = s.Len(ctx, "l")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func testPopEnds(t *testing.T, s deque.Store) {
	ctx := context.Background()
	_, err := s.Pop(ctx, "l", deque.Head)
	require.ErrorIs(t, err, deque.ErrEmpty)

	for _, v := range []string{"a", "b", "c"} {
		_, err := s.Push(ctx, "l", deque.Tail, []byte(v))
		require.NoError(t, err)
	}
	v, err := s.Pop(ctx, "l", deque.Head)
	require.NoError(t, err)
	assert.Equal(t, "a", string(v))
	v, err = s.Pop(ctx, "l", deque.Tail)
	require.NoError(t, err)
	assert.Equal(t, "c", string(v))
	assert.Equal(t, []string{"b"}, values(t, s, "l"))
}

func testMove(t *testing.T, s deque.Store) {
	ctx := context.Background()
	_, err := s.Move(ctx, "src", "dst", deque.Tail, deque.Head)
	require.ErrorIs(t, err, deque.ErrEmpty)

	for _, v := range []string{"a", "b"} {
		_, err := s.Push(ctx, "src", deque.Tail, []byte(v))
		require.NoError(t, err)
	}
	_, err = s.Push(ctx, "dst", deque.Head, []byte("x"))
	require.NoError(t, err)

	v, err := s.Move(ctx, "src", "dst", deque.Tail, deque.Head)
	require.NoError(t, err)
	assert.Equal(t, "b", string(v))
	assert.Equal(t, []string{"a"}, values(t, s, "src"))
	assert.Equal(t, []string{"b", "x"}, values(t, s, "dst"))

	v, err = s.Move(ctx, "dst", "src", deque.Head, deque.Tail)
	require.NoError(t, err)
	assert.Equal(t, "b", string(v))
	assert.Equal(t, []string{"a", "b"}, values(t, s, "src"))
	assert.Equal(t, []string{"x"}, values(t, s, "dst"))
}

func testBlockingMoveTimeout(t *testing.T, s deque.Store) {
	ctx := context.Background()
	start := time.Now()
	_, err := s.BlockingMove(ctx, "src", "dst", deque.Tail, deque.Head, time.Second)
	elapsed := time.Since(start)
	require.ErrorIs(t, err, deque.ErrEmpty)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func testBlockingMoveWakes(t *testing.T, s deque.Store) {
	ctx := context.Background()
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = s.Push(ctx, "src", deque.Head, []byte("late"))
	}()
	v, err := s.BlockingMove(ctx, "src", "dst", deque.Tail, deque.Head, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", string(v))
	assert.Equal(t, []string{"late"}, values(t, s, "dst"))
}

func testBlockingMoveCancel(t *testing.T, s deque.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.BlockingMove(ctx, "src", "dst", deque.Tail, deque.Head, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, deque.ErrEmpty)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func testRemove(t *testing.T, s deque.Store) {
	ctx := context.Background()
	for _, v := range []string{"a", "b", "a", "c", "a"} {
		_, err := s.Push(ctx, "l", deque.Tail, []byte(v))
		require.NoError(t, err)
	}
	n, err := s.Remove(ctx, "l", 1, []byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, []string{"b", "a", "c", "a"}, values(t, s, "l"))

	n, err = s.Remove(ctx, "l", -1, []byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, []string{"b", "a", "c"}, values(t, s, "l"))

	_, err = s.Push(ctx, "l", deque.Tail, []byte("a"))
	require.NoError(t, err)
	n, err = s.Remove(ctx, "l", 0, []byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, []string{"b", "c"}, values(t, s, "l"))

	n, err = s.Remove(ctx, "l", 0, []byte("zzz"))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Remove(ctx, "missing", 0, []byte("a"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRange(t *testing.T, s deque.Store) {
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c", "d"} {
		_, err := s.Push(ctx, "l", deque.Tail, []byte(v))
		require.NoError(t, err)
	}
	got, err := s.Range(ctx, "l", 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", string(got[0]))
	assert.Equal(t, "c", string(got[1]))

	got, err = s.Range(ctx, "l", -2, -1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", string(got[0]))
	assert.Equal(t, "d", string(got[1]))

	got, err = s.Range(ctx, "l", 3, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Range(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testDelete(t *testing.T, s deque.Store) {
	ctx := context.Background()
	_, err := s.Push(ctx, "a", deque.Head, []byte("1"))
	require.NoError(t, err)
	_, err = s.Push(ctx, "b", deque.Head, []byte("2"))
	require.NoError(t, err)
	_, err = s.Push(ctx, "c", deque.Head, []byte("3"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a", "b"))
	require.NoError(t, s.Delete(ctx, "never-existed"))
	for _, l := range []string{"a", "b"} {
		n, err := s.Len(ctx, l)
		require.NoError(t, err)
		assert.Zero(t, n, l)
	}
	assert.Equal(t, []string{"3"}, values(t, s, "c"))

	// a deleted list is usable again
	_, err = s.Push(ctx, "a", deque.Tail, []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, []string{"again"}, values(t, s, "a"))
}

func testConcurrentMoves(t *testing.T, s deque.Store) {
	ctx := context.Background()
	const total = 60
	for i := 0; i < total; i++ {
		_, err := s.Push(ctx, "src", deque.Head, []byte{byte('A' + i%26), byte('0' + i/26)})
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := s.Move(ctx, "src", "dst", deque.Tail, deque.Head)
				if errors.Is(err, deque.ErrEmpty) {
					return
				}
				if err != nil {
					t.Errorf("move: %v", err)
					return
				}
				mu.Lock()
				seen = append(seen, string(v))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	sort.Strings(seen)
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i], "duplicate delivery")
	}
	n, err := s.Len(ctx, "dst")
	require.NoError(t, err)
	assert.EqualValues(t, total, n)
}

func testDequeRoundTrip(t *testing.T, s deque.Store) {
	ctx := context.Background()
	q, err := deque.New(s, "jobs", deque.WithTimeout(time.Second))
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "c"} {
		_, err := q.Push(ctx, []byte(v))
		require.NoError(t, err)
	}
	msg, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(msg))

	_, _, err = q.TryPop(ctx)
	require.NoError(t, err)
	moved, err := q.Refill(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)
	assert.Equal(t, []string{"c", "b", "a"}, values(t, s, "jobs"))

	stats, err := q.Process(ctx, func(context.Context, []byte) error { return nil }, deque.NonBlocking())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Committed)
	n, err := q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
