package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfgpkg "github.com/rzbill/deque/internal/config"
	pebblestore "github.com/rzbill/deque/internal/storage/pebble"
	redisstore "github.com/rzbill/deque/internal/storage/redis"
	sqlstore "github.com/rzbill/deque/internal/storage/sql"
	"github.com/rzbill/deque/pkg/deque"
	logpkg "github.com/rzbill/deque/pkg/log"
)

// openTimeout bounds backend dialing in Open.
const openTimeout = 10 * time.Second

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	// Logger defaults to a no-op logger.
	Logger logpkg.Logger
}

// Runtime owns the configured store and hands out queue pairs over it.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	store  deque.Store
	ping   func(context.Context) error
	close  func() error
}

// Open validates the config and opens the backend it names.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	rt := &Runtime{config: cfg, logger: logger.WithComponent("runtime")}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	switch cfg.Store.Backend {
	case cfgpkg.BackendRedis:
		s, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		rt.store, rt.ping, rt.close = s, s.Ping, s.Close

	case cfgpkg.BackendPebble:
		fsync, err := pebblestore.ParseFsyncMode(cfg.Store.Pebble.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       cfg.Store.Pebble.DataDir,
			Fsync:         fsync,
			FsyncInterval: time.Duration(cfg.Store.Pebble.FsyncIntervalMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		rt.store, rt.close = pebblestore.NewLists(db), db.Close
		rt.ping = func(context.Context) error {
			it, err := db.NewIter(nil)
			if err != nil {
				return err
			}
			return it.Close()
		}

	case cfgpkg.BackendSQLite, cfgpkg.BackendPostgres:
		s, err := sqlstore.Open(ctx, cfg.Store.Backend, cfg.Store.SQL.DSN, sqlstore.Options{
			PollInterval: time.Duration(cfg.Store.SQL.PollIntervalMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		rt.store, rt.ping, rt.close = s, s.Ping, s.Close
	}

	rt.logger.Info("store opened", logpkg.Str("backend", cfg.Store.Backend))
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.close == nil {
		return nil
	}
	err := r.close()
	r.close = nil
	return err
}

// CheckHealth verifies the store is reachable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil || r.ping == nil {
		return errors.New("store not open")
	}
	if err := r.ping(ctx); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// OpenDeque returns a queue pair named name over the runtime's store. The
// configured process suffix, timeout and logger apply first; opts override
// them.
func (r *Runtime) OpenDeque(name string, opts ...deque.Option) (*deque.Deque, error) {
	base := []deque.Option{
		deque.WithTimeout(time.Duration(r.config.Queue.TimeoutMs) * time.Millisecond),
		deque.WithLogger(r.logger),
	}
	if name != "" {
		base = append(base, deque.WithProcessName(name+r.config.Queue.ProcessSuffix))
	}
	return deque.New(r.store, name, append(base, opts...)...)
}

// Store exposes the underlying list store.
func (r *Runtime) Store() deque.Store { return r.store }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
