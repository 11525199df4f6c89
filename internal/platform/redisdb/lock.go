// Package redisdb holds the Redis client and the per-key writer lock built on
// it.
package redisdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/termbase-backend/internal/platform/logger"
)

var ErrLockTimeout = errors.New("lock wait timed out")

// Locker grants exclusive access to a key. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type LockConfig struct {
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
}

func (c LockConfig) withDefaults() LockConfig {
	if c.Prefix == "" {
		c.Prefix = "termbase:lock:"
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.Wait <= 0 {
		c.Wait = 10 * time.Second
	}
	if c.Retry <= 0 {
		c.Retry = 25 * time.Millisecond
	}
	return c
}

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb goredis.UniversalClient
	cfg LockConfig
	log *logger.Logger
}

// NewRedisLocker locks with SET NX PX and releases only the caller's own
// token.
func NewRedisLocker(rdb goredis.UniversalClient, cfg LockConfig, log *logger.Logger) Locker {
	return &redisLocker{rdb: rdb, cfg: cfg.withDefaults(), log: log.With("component", "RedisLocker")}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.cfg.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()
	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(waitCtx, full, token, l.cfg.TTL).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				relCtx, relCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer relCancel()
				if err := releaseScript.Run(relCtx, l.rdb, []string{full}, token).Err(); err != nil {
					l.log.Warn("redis unlock failed", "key", key, "error", err)
				}
			}, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
	wait  time.Duration
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker is an in-process keyed mutex for single-instance deployments.
func NewLocalLocker(wait time.Duration) Locker {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &localLocker{slots: map[string]*localSlot{}, wait: wait}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		l.release(key, s)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

func (l *localLocker) release(key string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
