package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript удаляет ключ, только если он все еще принадлежит владельцу.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker - блокировка прохода, общая для нескольких экземпляров сервиса.
type RedisLocker struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker создает новый экземпляр RedisLocker.
func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl, logger: logger}
}

// TryLock выставляет ключ через SET NX PX со случайным токеном владельца.
func (l *RedisLocker) TryLock(ctx context.Context) (func(), error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return nil, models.NewEngineError(models.ErrPassAlreadyRunning, nil, "try again after the current pass finishes")
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
				l.logger.Error("failed to release pass lock", zap.String("key", l.key), zap.Error(err))
			}
		})
	}
	return release, nil
}
