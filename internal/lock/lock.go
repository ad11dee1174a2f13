package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-csevents/internal/logger"
)

// ErrLockHeld is returned when another owner holds the key.
var ErrLockHeld = errors.New("lock held by another owner")

const DefaultTTL = 30 * time.Minute

// unlockScript deletes the key only when it still belongs to the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.NewNop()
	}
	return &Redis{Client: client, Logger: log}
}

// Lock takes key for owner with SET NX PX. It returns false when someone else
// holds it.
func (r *Redis) Lock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return r.Client.SetNX(ctx, key, owner, ttl).Result()
}

// Unlock releases key if owner still holds it. Releasing an expired or
// foreign lock is a no-op.
func (r *Redis) Unlock(ctx context.Context, key, owner string) (bool, error) {
	n, err := unlockScript.Run(ctx, r.Client, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Extend pushes the expiry of a lock owner still holds.
func (r *Redis) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, r.Client, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RunLock guards a whole pipeline run across processes. While held, the
// key's expiry is pushed forward every renewEvery so a long run keeps it.
type RunLock struct {
	redis      *Redis
	key        string
	ttl        time.Duration
	renewEvery time.Duration
}

func (r *Redis) RunLock(key string, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RunLock{redis: r, key: key, ttl: ttl, renewEvery: ttl / 3}
}

// Acquire takes the run lock under a fresh owner token and keeps renewing it
// until release is called. The returned release func is safe to call more
// than once.
func (l *RunLock) Acquire(ctx context.Context) (release func(), err error) {
	owner := uuid.NewString()
	ok, err := l.redis.Lock(ctx, l.key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	l.redis.Logger.Debug("REDIS", fmt.Sprintf("Acquired %s as %s", l.key, owner))

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.heartbeat(owner, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ok, err := l.redis.Unlock(ctx, l.key, owner)
			switch {
			case err != nil:
				l.redis.Logger.Warn("REDIS", fmt.Sprintf("Failed to release %s: %v", l.key, err))
			case !ok:
				l.redis.Logger.Warn("REDIS", fmt.Sprintf("Lock %s expired before release", l.key))
			}
		})
	}, nil
}

func (l *RunLock) heartbeat(owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ok, err := l.redis.Extend(ctx, l.key, owner, l.ttl)
			cancel()
			switch {
			case err != nil:
				l.redis.Logger.Warn("REDIS", fmt.Sprintf("Failed to renew %s: %v", l.key, err))
			case !ok:
				l.redis.Logger.Error("REDIS", fmt.Sprintf("Lost %s before the run finished", l.key))
				return
			}
		}
	}
}
