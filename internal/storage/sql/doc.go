// Package sqlstore implements deque.Store on a relational table, for
// SQLite (github.com/mattn/go-sqlite3) and Postgres (github.com/lib/pq).
//
// Each list item is one row keyed by (list, pos). Head inserts take a
// position below the current minimum and tail inserts one above the
// maximum, so ORDER BY pos is list order. Every mutation, including the
// pop-and-push of Move, runs in one transaction.
//
// Blocking moves poll; the database has no way to wake a waiter.
package sqlstore
