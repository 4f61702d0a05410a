package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrBusy = errors.New("resource is locked by another operation")

// Locker serializes work on a key across instances. Without Redis, or when
// Redis itself fails, Acquire proceeds unlocked and callers rely on their
// own conditional writes.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	log    logrus.FieldLogger
}

func New(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Locker {
	l := &Locker{
		ttl:   ttl,
		retry: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 10),
		log:   log,
	}
	if client != nil {
		l.client = redislock.New(client)
	}
	return l
}

func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

// Acquire obtains key and returns a release func that is always safe to call.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if !l.Enabled() {
		return noop, nil
	}
	held, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return noop, ErrBusy
	}
	if err != nil {
		if l.log != nil {
			l.log.WithFields(logrus.Fields{"key": key, "err": err.Error()}).
				Warn("error obtaining redis lock; proceeding without redis lock")
		}
		return noop, nil
	}
	return func() {
		// Release may outlive the request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) && l.log != nil {
			l.log.WithFields(logrus.Fields{"key": key, "err": err.Error()}).Warn("redis lock release failed")
		}
	}, nil
}
