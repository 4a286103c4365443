// Package pebblestore keeps deque lists in an embedded Pebble database.
//
// DB is a thin wrapper adding an fsync policy and metrics hooks. Lists
// layers the deque.Store list primitives on top of it: each list is a
// metadata record plus one key per item, ordered by a signed position so
// that both ends can grow.
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	q, _ := deque.New(pebblestore.NewLists(db), "jobs")
//
// Blocking moves are served in-process: a waiter parks on a per-list
// channel that the next push or move into that list closes. Two processes
// cannot share one data directory.
package pebblestore
