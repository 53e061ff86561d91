package executors

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
)

type allReconciler interface {
	ReconcileAll(ctx context.Context) error
}

// StartLoop reconciles everything every LOOP_PERIOD until ctx is cancelled.
// A failed tick is logged and retried on the next one.
func StartLoop(ctx context.Context, syncer allReconciler) error {
	config := GetConfig()
	return runLoop(ctx, syncer, config.LoopPeriod, config.RunOnStart)
}

func runLoop(ctx context.Context, syncer allReconciler, period time.Duration, runOnStart bool) error {
	if period <= 0 {
		return errors.New("loop period must be positive")
	}

	ticker := time.NewTicker(period) // Set up a ticker that fires periodically
	defer ticker.Stop()

	logger.WithField("period", period.String()).Info("reconcile loop started")

	if runOnStart {
		tick(ctx, syncer)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconcile loop stopped")
			return nil

		case <-ticker.C:
			tick(ctx, syncer)
		}
	}
}

func tick(ctx context.Context, syncer allReconciler) {
	logger.Debug("loop tick")

	if err := syncer.ReconcileAll(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			logger.WithError(err).Info("previous reconciliation still running")
			return
		}
		logger.WithError(err).Warn("reconciliation failed, will retry on next tick")
	}
}
