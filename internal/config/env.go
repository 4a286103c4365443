package config

import (
	"os"
	"strconv"
)

// FromEnv overlays DEQUE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("DEQUE_STORE_BACKEND", &cfg.Store.Backend)
	str("DEQUE_REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("DEQUE_REDIS_USERNAME", &cfg.Store.Redis.Username)
	str("DEQUE_REDIS_PASSWORD", &cfg.Store.Redis.Password)
	num("DEQUE_REDIS_DB", &cfg.Store.Redis.DB)
	str("DEQUE_DATA_DIR", &cfg.Store.Pebble.DataDir)
	str("DEQUE_PEBBLE_FSYNC", &cfg.Store.Pebble.Fsync)
	num("DEQUE_PEBBLE_FSYNC_INTERVAL_MS", &cfg.Store.Pebble.FsyncIntervalMs)
	str("DEQUE_SQL_DSN", &cfg.Store.SQL.DSN)
	num("DEQUE_SQL_POLL_INTERVAL_MS", &cfg.Store.SQL.PollIntervalMs)
	str("DEQUE_PROCESS_SUFFIX", &cfg.Queue.ProcessSuffix)
	num("DEQUE_TIMEOUT_MS", &cfg.Queue.TimeoutMs)
	str("DEQUE_HTTP_ADDR", &cfg.HTTP.Addr)
	num("DEQUE_HTTP_MAX_BLOCK_MS", &cfg.HTTP.MaxBlockMs)
	str("DEQUE_LOG_LEVEL", &cfg.Log.Level)
	str("DEQUE_LOG_FORMAT", &cfg.Log.Format)
	str("DEQUE_LOG_OUTPUT", &cfg.Log.Output)
}
