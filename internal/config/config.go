package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	logpkg "github.com/rzbill/deque/pkg/log"
)

// Backend names accepted in Store.Backend.
const (
	BackendRedis    = "redis"
	BackendPebble   = "pebble"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Store StoreConfig   `json:"store" yaml:"store"`
	Queue QueueDefaults `json:"queue" yaml:"queue"`
	HTTP  HTTPConfig    `json:"http" yaml:"http"`
	Log   logpkg.Config `json:"log" yaml:"log"`
}

// StoreConfig selects and configures the list store.
type StoreConfig struct {
	Backend string       `json:"backend" yaml:"backend"`
	Redis   RedisConfig  `json:"redis" yaml:"redis"`
	Pebble  PebbleConfig `json:"pebble" yaml:"pebble"`
	SQL     SQLConfig    `json:"sql" yaml:"sql"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type PebbleConfig struct {
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is always, interval or never.
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
}

type SQLConfig struct {
	DSN            string `json:"dsn" yaml:"dsn"`
	PollIntervalMs int    `json:"pollIntervalMs" yaml:"pollIntervalMs"`
}

// QueueDefaults apply to every queue pair opened through the runtime.
type QueueDefaults struct {
	ProcessSuffix string `json:"processSuffix" yaml:"processSuffix"`
	// TimeoutMs is the blocking pop wait; 0 waits forever.
	TimeoutMs int `json:"timeoutMs" yaml:"timeoutMs"`
}

type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// MaxBlockMs caps the wait a client may request on a blocking pop.
	MaxBlockMs int `json:"maxBlockMs" yaml:"maxBlockMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendRedis,
			Redis:   RedisConfig{Addr: "127.0.0.1:6379"},
			Pebble:  PebbleConfig{DataDir: DefaultDataDir(), Fsync: "interval", FsyncIntervalMs: 5},
			SQL:     SQLConfig{PollIntervalMs: 50},
		},
		Queue: QueueDefaults{ProcessSuffix: "_process"},
		HTTP:  HTTPConfig{Addr: ":8080", MaxBlockMs: 30_000},
		Log:   logpkg.Config{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks fields that the runtime cannot default.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendPebble, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendPebble && c.Store.Pebble.DataDir == "" {
		return fmt.Errorf("config: pebble backend needs store.pebble.dataDir")
	}
	if (c.Store.Backend == BackendSQLite || c.Store.Backend == BackendPostgres) && c.Store.SQL.DSN == "" {
		return fmt.Errorf("config: %s backend needs store.sql.dsn", c.Store.Backend)
	}
	if c.Queue.ProcessSuffix == "" {
		return fmt.Errorf("config: queue.processSuffix must not be empty")
	}
	if c.Queue.TimeoutMs < 0 {
		return fmt.Errorf("config: queue.timeoutMs must not be negative")
	}
	return nil
}

// Resolve loads path (defaults when empty), overlays the environment and
// validates the result.
func Resolve(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	FromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
