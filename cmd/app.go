package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/senyabanana/organ-match-service/internal/db"
	"github.com/senyabanana/organ-match-service/internal/events"
	"github.com/senyabanana/organ-match-service/internal/handlers"
	"github.com/senyabanana/organ-match-service/internal/lock"
	"github.com/senyabanana/organ-match-service/internal/repository"
	"github.com/senyabanana/organ-match-service/internal/router"
	"github.com/senyabanana/organ-match-service/internal/router/config"
	"github.com/senyabanana/organ-match-service/internal/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app связывает хранилище, блокировку, события и сервисы по конфигурации.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *repository.Store
	matches    *services.MatchService
	allocation *services.AllocationService
	registry   *services.RegistryService
	closers    []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.StorageBackend {
	case config.StorageMemory:
		a.store = repository.NewMemoryRepo().Store()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		dbPool, err := db.InitDb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, dbPool.Close)
		a.store = &repository.Store{
			Donors:   repository.NewPostgresDonorRepository(dbPool),
			Requests: repository.NewPostgresRequestRepository(dbPool),
			Matches:  repository.NewPostgresMatchRepository(dbPool),
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		client, err := db.InitRedis(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		rdb = client
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		})
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.LockBackend == config.LockRedis {
		if rdb == nil {
			a.close()
			return nil, fmt.Errorf("redis lock backend requires REDIS_ADDR")
		}
		locker = lock.NewRedisLocker(rdb, cfg.LockKey, cfg.LockTTL, logger)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, cfg.EventsChannel)
	}

	a.matches = services.NewMatchService(a.store.Matches, publisher, logger)
	a.allocation = services.NewAllocationService(a.store, locker, cfg.Weights, publisher, logger)
	a.registry = services.NewRegistryService(a.store, a.matches, a.allocation.Evaluator, logger)
	return a, nil
}

func (a *app) routes() http.Handler {
	return router.InitRoutes(
		handlers.NewMatchHandler(a.matches, a.allocation, a.logger, a.cfg.RequestTimeout),
		handlers.NewRegistryHandler(a.registry, a.logger, a.cfg.RequestTimeout),
	)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
