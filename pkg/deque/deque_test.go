package deque_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/rzbill/deque/internal/storage/redis"
	"github.com/rzbill/deque/pkg/deque"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), ContextTimeoutEnabled: true})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client), srv
}

func newDeque(t *testing.T, opts ...deque.Option) (*deque.Deque, *miniredis.Miniredis) {
	t.Helper()
	s, srv := newStore(t)
	q, err := deque.New(s, "jobs", opts...)
	require.NoError(t, err)
	return q, srv
}

func push(t *testing.T, q *deque.Deque, vals ...string) {
	t.Helper()
	for _, v := range vals {
		_, err := q.Push(context.Background(), []byte(v))
		require.NoError(t, err)
	}
}

func popN(t *testing.T, q *deque.Deque, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg, ok, err := q.TryPop(context.Background())
		require.NoError(t, err)
		require.True(t, ok, "pop %d came back empty", i)
		out = append(out, string(msg))
	}
	return out
}

func TestNewValidatesNames(t *testing.T) {
	s, _ := newStore(t)

	tests := []struct {
		name string
		list string
		opts []deque.Option
	}{
		{"empty name", "", nil},
		{"empty process name", "jobs", []deque.Option{deque.WithProcessName("")}},
		{"same names", "jobs", []deque.Option{deque.WithProcessName("jobs")}},
		{"suffix collision", "jobs_process", []deque.Option{deque.WithProcessName("jobs_process")}},
		{"negative timeout", "jobs", []deque.Option{deque.WithTimeout(-time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deque.New(s, tt.list, tt.opts...)
			require.ErrorIs(t, err, deque.ErrConfiguration)
		})
	}

	_, err := deque.New(nil, "jobs")
	require.ErrorIs(t, err, deque.ErrConfiguration)
}

func TestNewDefaults(t *testing.T) {
	q, _ := newDeque(t)
	assert.Equal(t, "jobs", q.Name())
	assert.Equal(t, "jobs_process", q.ProcessName())
	assert.Zero(t, q.Timeout())

	s, _ := newStore(t)
	custom, err := deque.New(s, "jobs", deque.WithProcessName("inflight"), deque.WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "inflight", custom.ProcessName())
	assert.Equal(t, 3*time.Second, custom.Timeout())
}

func TestPushPopIsFIFO(t *testing.T) {
	q, _ := newDeque(t)
	push(t, q, "a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, popN(t, q, 3))
}

func TestUnshiftPopIsLIFO(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "queued")
	for _, v := range []string{"a", "b"} {
		_, err := q.Unshift(ctx, []byte(v))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b", "a", "queued"}, popN(t, q, 3))
}

func TestPopMovesToProcessing(t *testing.T) {
	q, srv := newDeque(t)
	push(t, q, "a", "b")

	msg, ok, err := q.TryPop(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(msg))

	main, err := srv.List("jobs")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, main)
	proc, err := srv.List("jobs_process")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, proc)

	last, ok := q.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "a", string(last))
}

func TestEmptyPopClearsLastMessage(t *testing.T) {
	q, _ := newDeque(t)
	push(t, q, "a")
	popN(t, q, 1)

	_, ok, err := q.TryPop(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok = q.LastMessage()
	assert.False(t, ok)

	n, err := q.CommitLast(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBlockingPopTimesOut(t *testing.T) {
	q, _ := newDeque(t, deque.WithTimeout(2*time.Second))

	start := time.Now()
	msg, ok, err := q.Pop(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, msg)
	assert.GreaterOrEqual(t, elapsed, 1900*time.Millisecond)
	assert.Less(t, elapsed, 6*time.Second)
}

func TestBlockingPopWaitsFullFractionalTimeout(t *testing.T) {
	q, _ := newDeque(t, deque.WithTimeout(1500*time.Millisecond))

	start := time.Now()
	_, ok, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 1500*time.Millisecond)
}

func TestBlockingPopReceivesLatePush(t *testing.T) {
	q, _ := newDeque(t, deque.WithTimeout(5*time.Second))
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = q.Push(context.Background(), []byte("late"))
	}()
	msg, ok, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "late", string(msg))
}

func TestCommitAllKeepsMain(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "c", "d")
	popN(t, q, 3)

	require.NoError(t, q.CommitAll(ctx))
	n, err := q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCommitRemovesEveryOccurrence(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "a")
	popN(t, q, 3)

	n, err := q.Commit(ctx, []byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	items, err := q.Processing(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", string(items[0]))
}

func TestCommitLastRemovesOneOccurrence(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "a")
	popN(t, q, 2)

	n, err := q.CommitLast(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	items, err := q.Processing(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", string(items[0]))
}

func TestCommitLastMessageRemovesEveryCopy(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "y", "x", "x")
	assert.Equal(t, []string{"y", "x", "x"}, popN(t, q, 3))

	msg, ok := q.LastMessage()
	require.True(t, ok)
	n, err := q.Commit(ctx, msg)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := q.Processing(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "y", string(left[0]))
}

func TestCommitLastTargetsMostRecentPop(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b")
	popN(t, q, 2)

	_, err := q.CommitLast(ctx)
	require.NoError(t, err)
	ok, err := q.Contains(ctx, []byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = q.Contains(ctx, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefillPreservesOrder(t *testing.T) {
	q, srv := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "c", "d")
	popN(t, q, 3)

	moved, err := q.Refill(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, moved)

	main, err := srv.List("jobs")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, main)
	assert.Equal(t, []string{"a", "b", "c", "d"}, popN(t, q, 4))
}

func TestRefillOnEmptyProcessing(t *testing.T) {
	q, srv := newDeque(t)
	ctx := context.Background()
	push(t, q, "x", "y")

	moved, err := q.Refill(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved)
	main, err := srv.List("jobs")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, main)
}

func TestProcessCommitsOnSuccess(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "c")

	var seen []string
	stats, err := q.Process(ctx, func(_ context.Context, p []byte) error {
		seen = append(seen, string(p))
		return nil
	}, deque.NonBlocking())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, deque.ProcessStats{Popped: 3, Committed: 3}, stats)
	n, err := q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessLeavesFailuresInProcessing(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "c")

	stats, err := q.Process(ctx, func(context.Context, []byte) error {
		return errors.New("boom")
	}, deque.NonBlocking())
	require.NoError(t, err)
	assert.Equal(t, deque.ProcessStats{Popped: 3, Failed: 3}, stats)

	empty, err := q.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
	n, err := q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestProcessStopOnFailure(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b", "c")

	stats, err := q.Process(ctx, func(context.Context, []byte) error {
		return errors.New("boom")
	}, deque.NonBlocking(), deque.StopOnFailure())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Popped)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestProcessBlockingEndsOnTimeout(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a")

	start := time.Now()
	stats, err := q.Process(ctx, func(context.Context, []byte) error { return nil },
		deque.WithProcessTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Committed)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, time.Second, q.Timeout())
}

func TestProcessBlockingKeepsLoopingAfterFailure(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "bad", "good")

	stats, err := q.Process(ctx, func(_ context.Context, p []byte) error {
		if string(p) == "bad" {
			return errors.New("boom")
		}
		return nil
	}, deque.WithProcessTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, deque.ProcessStats{Popped: 2, Committed: 1, Failed: 1}, stats)

	processing, err := q.Processing(ctx)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "bad", string(processing[0]))
}

func TestProcessRejectsNegativeTimeout(t *testing.T) {
	q, _ := newDeque(t)
	_, err := q.Process(context.Background(), func(context.Context, []byte) error { return nil },
		deque.WithProcessTimeout(-time.Second))
	require.ErrorIs(t, err, deque.ErrConfiguration)
}

func TestProcessStopsOnCanceledContext(t *testing.T) {
	q, _ := newDeque(t)
	push(t, q, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())

	stats, err := q.Process(ctx, func(context.Context, []byte) error {
		cancel()
		return nil
	}, deque.NonBlocking())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Popped)
}

func TestClear(t *testing.T) {
	q, _ := newDeque(t)
	ctx := context.Background()
	push(t, q, "a", "b")
	popN(t, q, 1)

	require.NoError(t, q.Clear(ctx, false))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, q.Clear(ctx, true))
	n, err = q.ProcessingLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSharedListsAcrossInstances(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	producer, err := deque.New(s, "jobs")
	require.NoError(t, err)
	consumer, err := deque.New(s, "jobs")
	require.NoError(t, err)

	_, err = producer.Enqueue(ctx, []byte("a"))
	require.NoError(t, err)
	msg, ok, err := consumer.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(msg))

	_, ok = producer.LastMessage()
	assert.False(t, ok, "last message is per instance")
	size, err := producer.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestStoreErrorsSurface(t *testing.T) {
	q, srv := newDeque(t)
	srv.SetError("READONLY")
	_, err := q.Push(context.Background(), []byte("a"))
	require.Error(t, err)
	_, _, err = q.TryPop(context.Background())
	require.Error(t, err)
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "deque version "+deque.Version, deque.VersionString())
}

func TestEndString(t *testing.T) {
	assert.Equal(t, "LEFT", deque.Head.String())
	assert.Equal(t, "RIGHT", deque.Tail.String())
}
