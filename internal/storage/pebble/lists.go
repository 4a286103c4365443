package pebblestore

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rzbill/deque/pkg/deque"
)

// Lists implements deque.Store on a Pebble database. Every mutation is a
// single indexed batch committed under one writer lock, which is what makes
// Move atomic.
type Lists struct {
	db      *DB
	mu      sync.RWMutex
	waiters *notifier
}

var _ deque.Store = (*Lists)(nil)

// NewLists returns a list store backed by db. The caller keeps ownership of
// db and closes it.
func NewLists(db *DB) *Lists {
	return &Lists{db: db, waiters: newNotifier()}
}

// DB returns the underlying database.
func (l *Lists) DB() *DB { return l.db }

func (l *Lists) Len(ctx context.Context, list string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, err := l.readMeta(list)
	if err != nil {
		return 0, err
	}
	return m.count, nil
}

func (l *Lists) Delete(ctx context.Context, lists ...string) error {
	if len(lists) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.db.NewBatch()
	defer b.Close()
	for _, list := range lists {
		lower, upper := itemBounds(list)
		if err := b.DeleteRange(lower, upper, nil); err != nil {
			return err
		}
		if err := b.Delete(MetaKey(list), nil); err != nil {
			return err
		}
	}
	return l.db.CommitBatch(ctx, b)
}

func (l *Lists) Push(ctx context.Context, list string, end deque.End, value []byte) (int64, error) {
	start := time.Now()
	n, err := l.update(ctx, func(tx *listTxn) (int64, error) {
		return tx.push(list, end, value)
	})
	if err != nil {
		return 0, err
	}
	l.db.metrics.ObserveWrite(time.Since(start), len(value))
	l.waiters.notify(list)
	return n, nil
}

func (l *Lists) Pop(ctx context.Context, list string, end deque.End) ([]byte, error) {
	var out []byte
	_, err := l.update(ctx, func(tx *listTxn) (int64, error) {
		v, err := tx.pop(list, end)
		out = v
		return 0, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Lists) Move(ctx context.Context, src, dst string, from, to deque.End) ([]byte, error) {
	var out []byte
	_, err := l.update(ctx, func(tx *listTxn) (int64, error) {
		v, err := tx.pop(src, from)
		if err != nil {
			return 0, err
		}
		out = v
		return tx.push(dst, to, v)
	})
	if err != nil {
		return nil, err
	}
	l.waiters.notify(dst)
	return out, nil
}

// BlockingMove retries Move each time something is pushed into src, until
// the move succeeds, timeout elapses or ctx is done.
func (l *Lists) BlockingMove(ctx context.Context, src, dst string, from, to deque.End, timeout time.Duration) ([]byte, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		wake := l.waiters.wait(src)
		v, err := l.Move(ctx, src, dst, from, to)
		if !errors.Is(err, deque.ErrEmpty) {
			return v, err
		}
		select {
		case <-wake:
		case <-expired:
			return nil, deque.ErrEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Lists) Remove(ctx context.Context, list string, count int64, value []byte) (int64, error) {
	return l.update(ctx, func(tx *listTxn) (int64, error) {
		return tx.remove(list, count, value)
	})
}

func (l *Lists) Range(ctx context.Context, list string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The snapshot pins the list as of the meta read; iteration runs
	// without holding the lock.
	l.mu.RLock()
	m, err := l.readMeta(list)
	if err != nil {
		l.mu.RUnlock()
		return nil, err
	}
	snap := l.db.NewSnapshot()
	l.mu.RUnlock()
	defer snap.Close()

	n := m.count
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return [][]byte{}, nil
	}

	lower, upper := itemBounds(list)
	iter, err := snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([][]byte, 0, stop-start+1)
	var idx int64
	for ok := iter.First(); ok && idx <= stop; ok = iter.Next() {
		if idx >= start {
			out = append(out, append([]byte(nil), iter.Value()...))
		}
		idx++
	}
	return out, iter.Error()
}

func (l *Lists) readMeta(list string) (listMeta, error) {
	raw, err := l.db.Get(MetaKey(list))
	if errors.Is(err, pebble.ErrNotFound) {
		return listMeta{}, nil
	}
	if err != nil {
		return listMeta{}, err
	}
	return decodeMeta(raw)
}

// update runs fn inside one indexed batch and commits it when fn succeeds.
func (l *Lists) update(ctx context.Context, fn func(tx *listTxn) (int64, error)) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &listTxn{batch: l.db.NewIndexedBatch(), metas: make(map[string]*listMeta)}
	defer tx.batch.Close()
	n, err := fn(tx)
	if err != nil {
		return 0, err
	}
	if err := tx.flushMeta(); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, tx.batch); err != nil {
		return 0, err
	}
	return n, nil
}

// listTxn caches list metadata for the lifetime of one batch so that a
// move within a single list sees its own pop.
type listTxn struct {
	batch *pebble.Batch
	metas map[string]*listMeta
}

func (tx *listTxn) meta(list string) (*listMeta, error) {
	if m, ok := tx.metas[list]; ok {
		return m, nil
	}
	m := &listMeta{}
	raw, closer, err := tx.batch.Get(MetaKey(list))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		decoded, derr := decodeMeta(raw)
		closer.Close()
		if derr != nil {
			return nil, derr
		}
		*m = decoded
	}
	tx.metas[list] = m
	return m, nil
}

func (tx *listTxn) push(list string, end deque.End, value []byte) (int64, error) {
	m, err := tx.meta(list)
	if err != nil {
		return 0, err
	}
	var pos int64
	if end == deque.Head {
		m.head--
		pos = m.head
	} else {
		pos = m.tail
		m.tail++
	}
	if err := tx.batch.Set(ItemKey(list, pos), value, nil); err != nil {
		return 0, err
	}
	m.count++
	return m.count, nil
}

func (tx *listTxn) pop(list string, end deque.End) ([]byte, error) {
	m, err := tx.meta(list)
	if err != nil {
		return nil, err
	}
	if m.count == 0 {
		return nil, deque.ErrEmpty
	}
	iter, err := tx.iter(list)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ok bool
	if end == deque.Head {
		ok = iter.First()
	} else {
		ok = iter.Last()
	}
	if !ok {
		if err := iter.Error(); err != nil {
			return nil, err
		}
		return nil, errCorruptMeta
	}
	key := append([]byte(nil), iter.Key()...)
	value := append([]byte(nil), iter.Value()...)
	if err := tx.batch.Delete(key, nil); err != nil {
		return nil, err
	}

	pos := positionFromKey(key)
	if end == deque.Head {
		m.head = pos + 1
	} else {
		m.tail = pos
	}
	m.count--
	if m.count == 0 {
		*m = listMeta{}
	}
	return value, nil
}

func (tx *listTxn) remove(list string, count int64, value []byte) (int64, error) {
	m, err := tx.meta(list)
	if err != nil {
		return 0, err
	}
	if m.count == 0 {
		return 0, nil
	}
	iter, err := tx.iter(list)
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	limit := count
	if limit < 0 {
		limit = -limit
	}
	first, next := iter.First, iter.Next
	if count < 0 {
		first, next = iter.Last, iter.Prev
	}

	var removed int64
	for ok := first(); ok; ok = next() {
		if !bytes.Equal(iter.Value(), value) {
			continue
		}
		if err := tx.batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return 0, err
		}
		removed++
		if limit > 0 && removed == limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}

	m.count -= removed
	if m.count == 0 {
		*m = listMeta{}
	}
	return removed, nil
}

func (tx *listTxn) iter(list string) (*pebble.Iterator, error) {
	lower, upper := itemBounds(list)
	return tx.batch.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
}

// flushMeta writes every touched metadata record into the batch. Empty
// lists lose their metadata key entirely.
func (tx *listTxn) flushMeta() error {
	for list, m := range tx.metas {
		var err error
		if m.count == 0 {
			err = tx.batch.Delete(MetaKey(list), nil)
		} else {
			err = tx.batch.Set(MetaKey(list), m.encode(), nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
