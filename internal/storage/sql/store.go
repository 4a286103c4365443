package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	// Drivers for the two supported dialects.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rzbill/deque/pkg/deque"
)

// Dialect selects the SQL flavour a Store speaks.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// ParseDialect maps a database/sql driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	default:
		return SQLite, fmt.Errorf("sql: unsupported driver %q", driver)
	}
}

// DefaultPollInterval is how often BlockingMove re-checks an empty list.
const DefaultPollInterval = 50 * time.Millisecond

// Options configures a Store.
type Options struct {
	Dialect Dialect
	// PollInterval paces BlockingMove. Zero uses DefaultPollInterval.
	PollInterval time.Duration
}

// Store implements deque.Store on a single SQL table.
type Store struct {
	db      *sql.DB
	dialect Dialect
	poll    time.Duration
	owned   bool
}

var _ deque.Store = (*Store)(nil)

// New wraps db. The table must exist; see Migrate. SQLite handles should
// be limited to one open connection, which Open does for you.
func New(db *sql.DB, opts Options) *Store {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Store{db: db, dialect: opts.Dialect, poll: poll}
}

// Open connects with driver and dsn, then creates the table if needed.
func Open(ctx context.Context, driver, dsn string, opts Options) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	opts.Dialect = dialect
	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql: open: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	s := New(db, opts)
	s.owned = true
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql: ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the items table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	blob := "BLOB"
	if s.dialect == Postgres {
		blob = "BYTEA"
	}
	stmt := `CREATE TABLE IF NOT EXISTS deque_items (
	list  TEXT   NOT NULL,
	pos   BIGINT NOT NULL,
	value ` + blob + ` NOT NULL,
	PRIMARY KEY (list, pos)
)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sql: migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the handle when the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Len(ctx context.Context, list string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM deque_items WHERE list = ?`), list).Scan(&n)
	return n, err
}

func (s *Store) Delete(ctx context.Context, lists ...string) error {
	if len(lists) == 0 {
		return nil
	}
	return s.inTx(ctx, lists, func(tx *sql.Tx) error {
		for _, list := range lists {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM deque_items WHERE list = ?`), list); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Push(ctx context.Context, list string, end deque.End, value []byte) (int64, error) {
	var n int64
	err := s.inTx(ctx, []string{list}, func(tx *sql.Tx) error {
		if err := s.push(ctx, tx, list, end, value); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM deque_items WHERE list = ?`), list).Scan(&n)
	})
	return n, err
}

func (s *Store) Pop(ctx context.Context, list string, end deque.End) ([]byte, error) {
	var out []byte
	err := s.inTx(ctx, []string{list}, func(tx *sql.Tx) error {
		v, err := s.pop(ctx, tx, list, end)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Move(ctx context.Context, src, dst string, from, to deque.End) ([]byte, error) {
	var out []byte
	err := s.inTx(ctx, []string{src, dst}, func(tx *sql.Tx) error {
		v, err := s.pop(ctx, tx, src, from)
		if err != nil {
			return err
		}
		out = v
		return s.push(ctx, tx, dst, to, v)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BlockingMove polls Move every PollInterval until it succeeds, the
// timeout elapses or ctx is done.
func (s *Store) BlockingMove(ctx context.Context, src, dst string, from, to deque.End, timeout time.Duration) ([]byte, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		v, err := s.Move(ctx, src, dst, from, to)
		if !errors.Is(err, deque.ErrEmpty) {
			return v, err
		}
		select {
		case <-ticker.C:
		case <-expired:
			return nil, deque.ErrEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Store) Remove(ctx context.Context, list string, count int64, value []byte) (int64, error) {
	order, limit := "ASC", count
	if count < 0 {
		order, limit = "DESC", -count
	}
	query := `SELECT pos FROM deque_items WHERE list = ? AND value = ? ORDER BY pos ` + order
	if limit > 0 {
		query += ` LIMIT ` + strconv.FormatInt(limit, 10)
	}

	var removed int64
	err := s.inTx(ctx, []string{list}, func(tx *sql.Tx) error {
		positions, err := s.positions(ctx, tx, s.rebind(query), list, value)
		if err != nil {
			return err
		}
		for _, pos := range positions {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM deque_items WHERE list = ? AND pos = ?`), list, pos); err != nil {
				return err
			}
		}
		removed = int64(len(positions))
		return nil
	})
	return removed, err
}

func (s *Store) Range(ctx context.Context, list string, start, stop int64) ([][]byte, error) {
	out := [][]byte{}
	err := s.inTx(ctx, nil, func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM deque_items WHERE list = ?`), list).Scan(&n); err != nil {
			return err
		}
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
			return nil
		}
		rows, err := tx.QueryContext(ctx,
			s.rebind(`SELECT value FROM deque_items WHERE list = ? ORDER BY pos ASC LIMIT ? OFFSET ?`),
			list, stop-start+1, start)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v []byte
			if err := rows.Scan(&v); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) push(ctx context.Context, tx *sql.Tx, list string, end deque.End, value []byte) error {
	query := `SELECT COALESCE(MAX(pos) + 1, 0) FROM deque_items WHERE list = ?`
	if end == deque.Head {
		query = `SELECT COALESCE(MIN(pos) - 1, 0) FROM deque_items WHERE list = ?`
	}
	var pos int64
	if err := tx.QueryRowContext(ctx, s.rebind(query), list).Scan(&pos); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO deque_items (list, pos, value) VALUES (?, ?, ?)`), list, pos, value)
	return err
}

func (s *Store) pop(ctx context.Context, tx *sql.Tx, list string, end deque.End) ([]byte, error) {
	order := "ASC"
	if end == deque.Tail {
		order = "DESC"
	}
	var (
		pos   int64
		value []byte
	)
	err := tx.QueryRowContext(ctx,
		s.rebind(`SELECT pos, value FROM deque_items WHERE list = ? ORDER BY pos `+order+` LIMIT 1`),
		list).Scan(&pos, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, deque.ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM deque_items WHERE list = ? AND pos = ?`), list, pos); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) positions(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var pos int64
		if err := rows.Scan(&pos); err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// inTx runs fn in a transaction. On Postgres the named lists are locked
// for the transaction with advisory locks taken in sorted order; SQLite
// serializes writers on its single connection.
func (s *Store) inTx(ctx context.Context, lock []string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.dialect == Postgres && len(lock) > 0 {
		names := append([]string(nil), lock...)
		sort.Strings(names)
		prev := ""
		for i, name := range names {
			if i > 0 && name == prev {
				continue
			}
			prev = name
			if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
				return err
			}
		}
	}

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
