// Package redisstore implements store.Store on top of Redis.
package redisstore

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwise1/skipvote_bot/internal/store"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout  = 3 * time.Second
	scanBatch       = 100
	minIdleConns    = 2
	maxRetries      = 3
	connMaxIdleTime = 5 * time.Minute
)

type Options struct {
	URL     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Store is safe for concurrent use. The underlying client is created on first
// use and shared by every caller for the life of the process; go-redis keeps
// a pool and redials broken connections on its own.
type Store struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger

	once    sync.Once
	client  *redis.Client
	initErr error
}

var _ store.Store = (*Store)(nil)

func New(opts Options) *Store {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		url:     opts.URL,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Store) conn() (*redis.Client, error) {
	s.once.Do(func() {
		opt, err := redis.ParseURL(s.url)
		if err != nil {
			s.initErr = errors.Wrap(err, "parsing redis url")
			return
		}
		opt.DialTimeout = s.timeout
		opt.ReadTimeout = s.timeout
		opt.WriteTimeout = s.timeout
		opt.MaxRetries = maxRetries
		opt.MinIdleConns = minIdleConns
		opt.ConnMaxIdleTime = connMaxIdleTime
		s.client = redis.NewClient(opt)
		s.logger.Info("redis client initialised", "component", "store", "addr", opt.Addr)
	})
	return s.client, s.initErr
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis GET %s", key)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := c.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis SET %s", key)
	}
	return nil
}

// CompareAndSwap runs an optimistic WATCH/MULTI transaction on key. A
// concurrent writer touching key between the read and EXEC aborts the
// transaction, which is reported as not swapped.
func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	c, err := s.conn()
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	swapped := false
	err = c.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if !bytes.Equal(cur, prev) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "redis CAS %s", key)
	}
	return swapped, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := c.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrapf(err, "redis DEL %v", keys)
	}
	return nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := c.Expire(ctx, key, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis EXPIRE %s", key)
	}
	return nil
}

// AddMember adds member and refreshes the set TTL in one MULTI block.
func (s *Store) AddMember(ctx context.Context, key, member string, ttl time.Duration) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, member)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis SADD %s", key)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, key, member string) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := c.SRem(ctx, key, member).Err(); err != nil {
		return errors.Wrapf(err, "redis SREM %s", key)
	}
	return nil
}

func (s *Store) Cardinality(ctx context.Context, key string) (int64, error) {
	c, err := s.conn()
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := c.SCard(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis SCARD %s", key)
	}
	return n, nil
}

func (s *Store) Members(ctx context.Context, key string) ([]string, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := c.SMembers(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis SMEMBERS %s", key)
	}
	return members, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// ScanPrefix walks the keyspace with SCAN MATCH. SCAN may yield a key more
// than once, so results are de-duplicated. The prefix is matched literally.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	c, err := s.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seen := make(map[string]struct{})
	var keys []string
	iter := c.Scan(ctx, 0, globEscaper.Replace(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "redis SCAN %s*", prefix)
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	c, err := s.conn()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis PING")
	}
	return nil
}

// Close releases the shared client. It is a no-op if the client was never
// created.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
