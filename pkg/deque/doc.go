// Package deque implements a reliable queue on top of an ordered-list store.
//
// A Deque owns two lists: the main list, where producers insert payloads,
// and the processing list, which holds payloads handed to a consumer but
// not yet acknowledged. Pop moves a payload from the tail of the main list
// to the head of the processing list in one atomic store operation, so a
// consumer that crashes before acknowledging never loses it.
//
// # Lifecycle
//
//  1. Push / Unshift: payload inserted at the head / tail of the main list
//  2. Pop / TryPop: payload atomically moved to the processing list
//  3. Commit / CommitLast / CommitAll: payload removed from processing
//  4. Refill: uncommitted payloads moved back to the main list
//
// # Ordering
//
// Pop takes from the tail. Payloads inserted with Push come out in FIFO
// order; payloads inserted with Unshift jump the line and come out LIFO.
//
//	q, _ := deque.New(store, "jobs", deque.WithTimeout(2*time.Second))
//	_, _ = q.Push(ctx, []byte("a"))
//	msg, ok, err := q.Pop(ctx)
//	if err == nil && ok {
//	    _, _ = q.Commit(ctx, msg)
//	}
//
// # Atomicity
//
// All atomicity comes from the Store. The package never emulates a move
// with separate pop and push calls; Refill uses the store's move too.
package deque
