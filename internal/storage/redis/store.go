package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rzbill/deque/pkg/deque"
)

// Options configures a Redis connection.
type Options struct {
	// Addr is host:port of the server. Defaults to 127.0.0.1:6379.
	Addr     string
	Username string
	Password string
	DB       int
	// DialTimeout bounds connection setup. Zero uses the client default.
	DialTimeout time.Duration
}

// Store implements deque.Store with Redis list commands.
type Store struct {
	client redis.UniversalClient
	owned  bool
}

var _ deque.Store = (*Store)(nil)

// New wraps an existing client. Close does not close it. The client must
// be built with ContextTimeoutEnabled so that BlockingMove honours ctx
// deadlines; Open does this.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Open dials Redis with opts and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:6379"
	}
	// ContextTimeoutEnabled makes blocking commands honour ctx deadlines.
	client := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Username:              opts.Username,
		Password:              opts.Password,
		DB:                    opts.DB,
		DialTimeout:           opts.DialTimeout,
		ContextTimeoutEnabled: true,
	})
	s := &Store{client: client, owned: true}
	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Client exposes the underlying client.
func (s *Store) Client() redis.UniversalClient { return s.client }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the client when the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Len(ctx context.Context, list string) (int64, error) {
	return s.client.LLen(ctx, list).Result()
}

func (s *Store) Delete(ctx context.Context, lists ...string) error {
	if len(lists) == 0 {
		return nil
	}
	return s.client.Del(ctx, lists...).Err()
}

func (s *Store) Push(ctx context.Context, list string, end deque.End, value []byte) (int64, error) {
	if end == deque.Tail {
		return s.client.RPush(ctx, list, value).Result()
	}
	return s.client.LPush(ctx, list, value).Result()
}

func (s *Store) Pop(ctx context.Context, list string, end deque.End) ([]byte, error) {
	var cmd *redis.StringCmd
	if end == deque.Tail {
		cmd = s.client.RPop(ctx, list)
	} else {
		cmd = s.client.LPop(ctx, list)
	}
	return bytesResult(cmd)
}

// Move runs LMOVE src dst from to.
func (s *Store) Move(ctx context.Context, src, dst string, from, to deque.End) ([]byte, error) {
	return bytesResult(s.client.LMove(ctx, src, dst, from.String(), to.String()))
}

// BlockingMove runs BLMOVE. The client sends the timeout in whole
// seconds, so a positive timeout is rounded up to the next second and the
// move never gives up early.
func (s *Store) BlockingMove(ctx context.Context, src, dst string, from, to deque.End, timeout time.Duration) ([]byte, error) {
	timeout = roundUpSecond(timeout)
	return bytesResult(s.client.BLMove(ctx, src, dst, from.String(), to.String(), timeout))
}

func (s *Store) Remove(ctx context.Context, list string, count int64, value []byte) (int64, error) {
	return s.client.LRem(ctx, list, count, value).Result()
}

func (s *Store) Range(ctx context.Context, list string, start, stop int64) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, list, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func roundUpSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

func bytesResult(cmd *redis.StringCmd) ([]byte, error) {
	b, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, deque.ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
