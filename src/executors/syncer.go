package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tradejournal/src/lock"
	"tradejournal/src/metrics"
	"tradejournal/src/model"
	"tradejournal/src/reconciler"
)

// ErrSyncInProgress is returned when a reconciler of the same kind is already
// running somewhere holding the lease.
var ErrSyncInProgress = errors.New("sync already in progress")

type reconcilerRunner interface {
	Reconcile(ctx context.Context) (reconciler.Report, error)
}

type syncRunRepository interface {
	Create(ctx context.Context, run *model.SyncRun) error
}

// Syncer runs the position and order reconcilers on demand. Each kind is
// guarded by its own lease, so at most one invocation per kind is in flight.
type Syncer struct {
	positions  reconcilerRunner
	orders     reconcilerRunner
	locker     lock.Locker
	lockTTL    time.Duration
	runs       syncRunRepository
	exceptions exceptionRepository
}

func NewSyncer(
	positions reconcilerRunner,
	orders reconcilerRunner,
	locker lock.Locker,
	lockTTL time.Duration,
	runs syncRunRepository,
	exceptions exceptionRepository,
) *Syncer {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Syncer{
		positions:  positions,
		orders:     orders,
		locker:     locker,
		lockTTL:    lockTTL,
		runs:       runs,
		exceptions: exceptions,
	}
}

func (s *Syncer) ReconcilePositions(ctx context.Context) error {
	return s.run(ctx, uuid.NewString(), model.SyncKindPositions, s.positions)
}

func (s *Syncer) ReconcileOrders(ctx context.Context) error {
	return s.run(ctx, uuid.NewString(), model.SyncKindOrders, s.orders)
}

// ReconcileAll runs both reconcilers concurrently and waits for both. One
// failing never cancels the other; their errors are joined.
func (s *Syncer) ReconcileAll(ctx context.Context) error {
	runID := uuid.NewString()
	errs := make([]error, 2)

	var g errgroup.Group
	g.Go(func() error {
		errs[0] = s.run(ctx, runID, model.SyncKindPositions, s.positions)
		return nil
	})
	g.Go(func() error {
		errs[1] = s.run(ctx, runID, model.SyncKindOrders, s.orders)
		return nil
	})
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *Syncer) run(ctx context.Context, runID, kind string, r reconcilerRunner) error {
	fields := map[string]interface{}{
		"executor": "Syncer",
		"kind":     kind,
		"run_id":   runID,
	}
	started := time.Now().UTC()

	unlock, err := s.locker.Acquire(ctx, "reconcile:"+kind, s.lockTTL)
	if errors.Is(err, lock.ErrLockHeld) {
		logger.WithFields(fields).Info("Reconciliation already running, skipping")
		metrics.ObserveRun(kind, metrics.OutcomeSkipped, started)
		return fmt.Errorf("%s: %w", kind, ErrSyncInProgress)
	}
	if err != nil {
		Capture(ctx, s.exceptions, "Syncer", kind, "locker.Acquire", "error", err, fields)
		metrics.ObserveRun(kind, metrics.OutcomeFailure, started)
		return fmt.Errorf("acquire %s lease: %w", kind, err)
	}
	defer unlock()

	logger.WithFields(fields).Debug("Reconciliation started")

	report, runErr := r.Reconcile(ctx)
	finished := time.Now().UTC()

	s.record(ctx, runID, kind, report, runErr, started, finished)
	metrics.AddChanges(kind, map[string]int{
		"created":    report.Created,
		"updated":    report.Updated,
		"closed":     report.Closed,
		"deleted":    report.Deleted,
		"resolved":   report.Resolved,
		"unresolved": report.Unresolved,
		"skipped":    report.Skipped,
	})

	if runErr != nil {
		Capture(ctx, s.exceptions, "Syncer", kind, "Reconcile", "error", runErr, fields)
		metrics.ObserveRun(kind, metrics.OutcomeFailure, started)
		return fmt.Errorf("reconcile %s: %w", kind, runErr)
	}

	metrics.ObserveRun(kind, metrics.OutcomeSuccess, started)
	fields["elapsed"] = finished.Sub(started).String()
	logger.WithFields(fields).Info("Reconciliation succeeded")

	return nil
}

func (s *Syncer) record(
	ctx context.Context,
	runID, kind string,
	report reconciler.Report,
	runErr error,
	started, finished time.Time,
) {
	if s.runs == nil {
		return
	}

	run := &model.SyncRun{
		RunID:      runID,
		Kind:       kind,
		Success:    runErr == nil,
		Created:    report.Created,
		Updated:    report.Updated,
		Closed:     report.Closed,
		Deleted:    report.Deleted,
		Resolved:   report.Resolved,
		Unresolved: report.Unresolved,
		Skipped:    report.Skipped,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}

	if err := s.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		logger.WithFields(map[string]interface{}{
			"executor": "Syncer",
			"kind":     kind,
			"run_id":   runID,
		}).WithError(err).Error("Failed to record sync run")
	}
}
