package events

import (
	"context"
	"encoding/json"

	"github.com/senyabanana/organ-match-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher отправляет события жизненного цикла пар внешним потребителям.
type Publisher interface {
	Publish(ctx context.Context, event models.MatchEvent) error
}

// RedisPublisher публикует события в канал Redis pub/sub.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher создает новый экземпляр RedisPublisher.
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Publish сериализует событие в JSON и публикует его.
func (p *RedisPublisher) Publish(ctx context.Context, event models.MatchEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

// LogPublisher пишет события в лог, когда Redis не настроен.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher создает новый экземпляр LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish записывает событие в лог.
func (p *LogPublisher) Publish(_ context.Context, event models.MatchEvent) error {
	p.logger.Info("match event",
		zap.String("type", string(event.Type)),
		zap.String("match_id", event.MatchID),
		zap.String("donor_id", event.DonorID),
		zap.String("request_id", event.RequestID),
		zap.String("status", string(event.Status)),
		zap.String("request_status", string(event.RequestStatus)),
	)
	return nil
}
