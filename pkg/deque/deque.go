package deque

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	logpkg "github.com/rzbill/deque/pkg/log"
)

// Version of the deque protocol implementation.
const Version = "0.1.0"

// VersionString returns "deque version <Version>".
func VersionString() string { return "deque version " + Version }

// Deque is a reliable queue over a pair of lists in a Store: the main list
// holds pending work and the processing list holds payloads that have been
// handed to a consumer but not yet committed.
//
// Producers insert at either end of the main list; Pop always takes from
// the tail. A Deque is safe for concurrent use, though LastMessage is
// shared by every goroutine using the same instance.
type Deque struct {
	store       Store
	name        string
	processName string
	logger      logpkg.Logger

	mu          sync.Mutex
	timeout     time.Duration
	lastMessage []byte
	hasLast     bool
}

// New returns a Deque over the lists name and name+"_process" (or the
// name given with WithProcessName).
func New(store Store, name string, opts ...Option) (*Deque, error) {
	if store == nil {
		return nil, configError("store is required")
	}
	if name == "" {
		return nil, configError("queue name must be a non-empty string")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.processNameSet && o.processName == "" {
		return nil, configError("process queue name must be a non-empty string")
	}
	if !o.processNameSet {
		o.processName = name + DefaultProcessSuffix
	}
	if o.processName == name {
		return nil, configError("queue name and process queue name must be different")
	}
	if o.timeout < 0 {
		return nil, configError("timeout must not be negative")
	}
	if o.logger == nil {
		o.logger = logpkg.NewNop()
	}
	return &Deque{
		store:       store,
		name:        name,
		processName: o.processName,
		timeout:     o.timeout,
		logger:      o.logger.With(logpkg.Component("deque"), logpkg.Queue(name)),
	}, nil
}

func (d *Deque) Name() string        { return d.name }
func (d *Deque) ProcessName() string { return d.processName }

// Timeout returns the wait used by blocking pops.
func (d *Deque) Timeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeout
}

// SetTimeout changes the wait used by blocking pops.
func (d *Deque) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return configError("timeout must not be negative")
	}
	d.mu.Lock()
	d.timeout = timeout
	d.mu.Unlock()
	return nil
}

// LastMessage returns the payload of the most recent pop on this instance.
// ok is false when nothing was popped yet or the last pop came back empty.
func (d *Deque) LastMessage() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasLast {
		return nil, false
	}
	return append([]byte(nil), d.lastMessage...), true
}

func (d *Deque) setLast(msg []byte, ok bool) {
	d.mu.Lock()
	d.lastMessage, d.hasLast = msg, ok
	d.mu.Unlock()
}

// Len returns the number of payloads waiting in the main list.
func (d *Deque) Len(ctx context.Context) (int64, error) {
	return d.store.Len(ctx, d.name)
}

// Size is an alias for Len.
func (d *Deque) Size(ctx context.Context) (int64, error) { return d.Len(ctx) }

// ProcessingLen returns the number of uncommitted payloads.
func (d *Deque) ProcessingLen(ctx context.Context) (int64, error) {
	return d.store.Len(ctx, d.processName)
}

// Empty reports whether the main list has no payloads.
func (d *Deque) Empty(ctx context.Context) (bool, error) {
	n, err := d.Len(ctx)
	if err != nil {
		return false, err
	}
	return n <= 0, nil
}

// Clear deletes the main list and, when clearProcessing is set, the
// processing list too.
func (d *Deque) Clear(ctx context.Context, clearProcessing bool) error {
	lists := []string{d.name}
	if clearProcessing {
		lists = append(lists, d.processName)
	}
	return d.store.Delete(ctx, lists...)
}

// Push inserts payload at the head of the main list, so it is popped after
// everything already queued. It returns the new length.
func (d *Deque) Push(ctx context.Context, payload []byte) (int64, error) {
	return d.store.Push(ctx, d.name, Head, payload)
}

// Enqueue is an alias for Push.
func (d *Deque) Enqueue(ctx context.Context, payload []byte) (int64, error) {
	return d.Push(ctx, payload)
}

// Unshift inserts payload at the tail of the main list, so it is the next
// one popped.
func (d *Deque) Unshift(ctx context.Context, payload []byte) (int64, error) {
	return d.store.Push(ctx, d.name, Tail, payload)
}

// Pop moves the tail of the main list to the head of the processing list
// and returns it, waiting up to Timeout for a payload. ok is false when the
// wait ran out.
func (d *Deque) Pop(ctx context.Context) ([]byte, bool, error) {
	return d.pop(ctx, false)
}

// TryPop is Pop without waiting.
func (d *Deque) TryPop(ctx context.Context) ([]byte, bool, error) {
	return d.pop(ctx, true)
}

// Dequeue is an alias for Pop.
func (d *Deque) Dequeue(ctx context.Context) ([]byte, bool, error) { return d.Pop(ctx) }

// Shift is an alias for Pop.
func (d *Deque) Shift(ctx context.Context) ([]byte, bool, error) { return d.Pop(ctx) }

func (d *Deque) pop(ctx context.Context, nonBlock bool) ([]byte, bool, error) {
	var (
		msg []byte
		err error
	)
	if nonBlock {
		msg, err = d.store.Move(ctx, d.name, d.processName, Tail, Head)
	} else {
		msg, err = d.store.BlockingMove(ctx, d.name, d.processName, Tail, Head, d.Timeout())
	}
	if errors.Is(err, ErrEmpty) {
		d.setLast(nil, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	d.setLast(msg, true)
	return msg, true, nil
}

// Commit acknowledges payload by removing every equal value from the
// processing list. It returns how many were removed. To remove every copy
// of the last popped payload:
//
//	if msg, ok := q.LastMessage(); ok {
//		_, err = q.Commit(ctx, msg)
//	}
func (d *Deque) Commit(ctx context.Context, payload []byte) (int64, error) {
	return d.store.Remove(ctx, d.processName, 0, payload)
}

// CommitLast removes a single occurrence of the last popped payload,
// searching from the head of the processing list. Without a last message
// it does nothing.
func (d *Deque) CommitLast(ctx context.Context) (int64, error) {
	msg, ok := d.LastMessage()
	if !ok {
		return 0, nil
	}
	return d.store.Remove(ctx, d.processName, 1, msg)
}

// CommitAll drops the processing list.
func (d *Deque) CommitAll(ctx context.Context) error {
	return d.store.Delete(ctx, d.processName)
}

// Refill moves every payload of the processing list, head first, to the
// tail of the main list so they are redelivered in the order they were
// first popped. It returns the number of payloads moved.
func (d *Deque) Refill(ctx context.Context) (int64, error) {
	var moved int64
	for {
		_, err := d.store.Move(ctx, d.processName, d.name, Head, Tail)
		if errors.Is(err, ErrEmpty) {
			break
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		d.logger.Info("refilled main list", logpkg.Int64("moved", moved))
	}
	return moved, nil
}

// Processing returns a snapshot of the processing list, head first.
func (d *Deque) Processing(ctx context.Context) ([][]byte, error) {
	return d.store.Range(ctx, d.processName, 0, -1)
}

// Contains reports whether payload is currently checked out.
func (d *Deque) Contains(ctx context.Context, payload []byte) (bool, error) {
	items, err := d.Processing(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if bytes.Equal(it, payload) {
			return true, nil
		}
	}
	return false, nil
}
