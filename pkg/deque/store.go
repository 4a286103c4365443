package deque

import (
	"context"
	"errors"
	"time"
)

// End selects one end of a list. Head is the left end (LPUSH/LPOP),
// Tail the right end (RPUSH/RPOP).
type End int

const (
	Head End = iota
	Tail
)

// String returns the Redis spelling of the end (LEFT or RIGHT).
func (e End) String() string {
	if e == Tail {
		return "RIGHT"
	}
	return "LEFT"
}

// ErrEmpty is returned by Store pops and moves when the source list has
// nothing to take, including when a blocking move times out.
var ErrEmpty = errors.New("deque: list is empty")

// Store is the ordered-list service a Deque is built on. Implementations
// must perform Move and BlockingMove as one indivisible step: a value is
// never observable in both lists, nor in neither.
type Store interface {
	// Len returns the number of values in list; a missing list has length 0.
	Len(ctx context.Context, list string) (int64, error)
	// Delete removes the given lists entirely.
	Delete(ctx context.Context, lists ...string) error
	// Push inserts value at the given end and returns the new length.
	Push(ctx context.Context, list string, end End, value []byte) (int64, error)
	// Pop removes and returns the value at the given end, or ErrEmpty.
	Pop(ctx context.Context, list string, end End) ([]byte, error)
	// Move atomically pops from src at from and pushes onto dst at to.
	Move(ctx context.Context, src, dst string, from, to End) ([]byte, error)
	// BlockingMove is Move that waits up to timeout for src to become
	// non-empty. A zero timeout waits until ctx is done. It returns
	// ErrEmpty when the timeout elapses.
	BlockingMove(ctx context.Context, src, dst string, from, to End, timeout time.Duration) ([]byte, error)
	// Remove deletes values equal to value. count > 0 removes up to count
	// scanning from the head, count < 0 up to -count from the tail, and
	// count == 0 removes every match. It returns the number removed.
	Remove(ctx context.Context, list string, count int64, value []byte) (int64, error)
	// Range returns the values between start and stop inclusive. Negative
	// indexes count from the tail (-1 is the last value).
	Range(ctx context.Context, list string, start, stop int64) ([][]byte, error)
}
