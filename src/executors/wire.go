package executors

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/connectors"
	"tradejournal/src/lock"
	"tradejournal/src/reconciler"
	"tradejournal/src/repository"
)

// NewDefaultSyncer wires the Bybit client, the ledgers on MainDB and the lease
// store from the environment. The returned close function releases the lease
// store. database.InitMainDB must have run first.
func NewDefaultSyncer(ctx context.Context) (*Syncer, func(), error) {
	config := GetConfig()

	locker, closeLocker, err := newLocker(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	client := connectors.NewBybitClient(connectors.GetConfig())
	positionRepo := repository.NewPositionRepository()
	orderRepo := repository.NewOrderRepository()

	syncer := NewSyncer(
		reconciler.NewPositionReconciler(client, positionRepo, orderRepo, reconciler.GetConfig()),
		reconciler.NewOrderReconciler(client, orderRepo),
		locker,
		config.SyncLockTTL,
		repository.NewSyncRunRepository(),
		repository.NewExceptionRepository(),
	)

	return syncer, closeLocker, nil
}

func newLocker(ctx context.Context, config Config) (lock.Locker, func(), error) {
	if config.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-process sync lease")
		return lock.NewLocalLocker(), func() {}, nil
	}

	redisLocker, err := lock.NewRedisLocker(ctx, lock.RedisConfig{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect lease store: %w", err)
	}

	logger.WithField("addr", config.RedisAddr).Info("Using redis sync lease")

	return redisLocker, func() {
		if err := redisLocker.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close redis client")
		}
	}, nil
}
