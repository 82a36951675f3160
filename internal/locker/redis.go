package locker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/workforce-api/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultRetryInterval = 25 * time.Millisecond
	defaultTTL           = 10 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX leases so replicas sharing one
// database serialize on the same keys. A held lease is renewed every third of
// ttl until released; it expires after ttl only if the holder stops renewing.
type RedisLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
	logger        *logger.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		prefix:        "workforce:lock:",
		logger:        log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	return lockAll(ctx, l, keys)
}

func (l *RedisLocker) acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.renew(redisKey, token, stop, stopped)

	return func() {
		close(stop)
		<-stopped

		// The caller's context may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release lock, lease expires on its own",
				zap.String("key", redisKey),
				zap.Duration("ttl", l.ttl),
				zap.Error(err),
			)
		}
	}, nil
}

// renew extends the lease until stop is closed or the lease is found lost.
func (l *RedisLocker) renew(redisKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
		renewed, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err != nil:
			l.logger.Warn("failed to renew lock lease", zap.String("key", redisKey), zap.Error(err))
		case renewed == 0:
			l.logger.Error("lock lease expired before release", zap.String("key", redisKey), zap.Duration("ttl", l.ttl))
			return
		}
	}
}
