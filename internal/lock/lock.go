package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMissingToken = errors.New("lock key and token are required")

// Locker hands out exclusive, expiring locks keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RedisLock is a Locker shared between API instances.
type RedisLock struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration, retries int, backoff time.Duration) *RedisLock {
	return &RedisLock{
		client:  client,
		ttl:     ttl,
		retries: retries,
		backoff: backoff,
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := newToken()
	for attempt := 0; attempt <= l.retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}
		if attempt < l.retries {
			if err := sleep(ctx, l.backoff); err != nil {
				return "", false, err
			}
		}
	}
	return "", false, nil
}

// Release deletes the key only if it still holds token.
func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return ErrMissingToken
	}
	return releaseLua.Run(ctx, l.client, []string{key}, token).Err()
}

var releaseLua = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type localEntry struct {
	token   string
	expires time.Time
}

// LocalLock is an in-process Locker for single instance deployments and tests.
type LocalLock struct {
	mu      sync.Mutex
	held    map[string]localEntry
	ttl     time.Duration
	retries int
	backoff time.Duration
	now     func() time.Time
}

func NewLocalLock(ttl time.Duration, retries int, backoff time.Duration) *LocalLock {
	return &LocalLock{
		held:    make(map[string]localEntry),
		ttl:     ttl,
		retries: retries,
		backoff: backoff,
		now:     time.Now,
	}
}

func (l *LocalLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := newToken()
	for attempt := 0; attempt <= l.retries; attempt++ {
		if l.tryAcquire(key, token) {
			return token, true, nil
		}
		if attempt < l.retries {
			if err := sleep(ctx, l.backoff); err != nil {
				return "", false, err
			}
		}
	}
	return "", false, nil
}

func (l *LocalLock) tryAcquire(key, token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return false
	}
	l.held[key] = localEntry{token: token, expires: now.Add(l.ttl)}
	return true
}

func (l *LocalLock) Release(_ context.Context, key, token string) error {
	if key == "" || token == "" {
		return ErrMissingToken
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.held[key]; ok && e.token == token {
		delete(l.held, key)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
