package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/connectors"
	"tradejournal/src/mapper"
	"tradejournal/src/model"
	"tradejournal/src/repository"
)

// PositionReconciler mirrors the venue's open positions and realized-close
// feed into the position ledger.
type PositionReconciler struct {
	client    positionSource
	positions positionLedger
	notes     noteSource
	config    Config
}

func NewPositionReconciler(
	client positionSource,
	positions positionLedger,
	notes noteSource,
	config Config,
) *PositionReconciler {
	if config.ClosedPnLLimit <= 0 {
		config.ClosedPnLLimit = 50
	}
	return &PositionReconciler{
		client:    client,
		positions: positions,
		notes:     notes,
		config:    config,
	}
}

// Reconcile runs one pass. Remote failures skip the affected phase and are
// reported through ErrRemoteCall once the other phases have run. Ledger
// failures abort the pass; the next pass repairs whatever was left undone.
func (r *PositionReconciler) Reconcile(ctx context.Context) (Report, error) {
	var report Report
	var remoteErrs []error

	// ------------------------------------------------------------------
	// 1) Open-position snapshot and active set
	// ------------------------------------------------------------------
	live, active, err := r.fetchSnapshot(ctx)
	snapshotOK := err == nil
	if err != nil {
		remoteErrs = append(remoteErrs, err)
	}

	// ------------------------------------------------------------------
	// 2) Update OPEN rows in place or create them
	// ------------------------------------------------------------------
	if snapshotOK {
		for _, position := range live {
			if err := r.applyLive(ctx, position, &report); err != nil {
				return report, err
			}
		}
	}

	// ------------------------------------------------------------------
	// 3) Import realized closes
	// ------------------------------------------------------------------
	if err := r.importClosed(ctx, active, snapshotOK, &report); err != nil {
		if !errors.Is(err, ErrRemoteCall) {
			return report, err
		}
		remoteErrs = append(remoteErrs, err)
	}

	// ------------------------------------------------------------------
	// 4) Drop OPEN rows the venue no longer reports
	// ------------------------------------------------------------------
	if snapshotOK {
		if err := r.removeStale(ctx, active, &report); err != nil {
			return report, err
		}
	}

	logger.WithFields(map[string]interface{}{
		"reconciler": "positions",
		"created":    report.Created,
		"updated":    report.Updated,
		"closed":     report.Closed,
		"deleted":    report.Deleted,
		"skipped":    report.Skipped,
	}).Info("Position reconciliation finished")

	return report, errors.Join(remoteErrs...)
}

func (r *PositionReconciler) fetchSnapshot(ctx context.Context) ([]*model.Position, keySet, error) {
	active := keySet{}

	resp, err := r.client.GetOpenPositions(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"reconciler": "positions",
			"op":         "GetOpenPositions",
		}).WithError(err).Error("Failed to fetch open positions")
		return nil, active, fmt.Errorf("%w: open positions: %v", ErrRemoteCall, err)
	}
	if !resp.OK() {
		logger.WithFields(map[string]interface{}{
			"reconciler": "positions",
			"op":         "GetOpenPositions",
			"ret_code":   resp.RetCode,
			"ret_msg":    resp.RetMsg,
		}).Warn("Open positions call returned a non-success code, skipping")
		return nil, active, fmt.Errorf("%w: open positions: retCode %d %s", ErrRemoteCall, resp.RetCode, resp.RetMsg)
	}

	live := make([]*model.Position, 0, len(resp.List))
	for _, info := range resp.List {
		if !mapper.HasExposure(info) {
			continue
		}
		position := mapper.MapPositionInfo(info)
		active.add(position.Key())
		live = append(live, position)
	}

	return live, active, nil
}

func (r *PositionReconciler) applyLive(ctx context.Context, live *model.Position, report *Report) error {
	fields := map[string]interface{}{
		"reconciler": "positions",
		"symbol":     live.Symbol,
		"side":       live.Side,
	}

	existing, err := r.positions.FindOpen(ctx, live.Symbol, live.Side)
	if err != nil {
		return fmt.Errorf("find open position %s: %w", live.Key(), err)
	}

	if existing != nil {
		err := r.positions.UpdateLive(ctx, existing.ID, live)
		if err == nil {
			report.Updated++
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("update open position %s: %w", live.Key(), err)
		}
		logger.WithFields(fields).Warn("Open position vanished before update, recreating")
	}

	noted, err := r.notes.FindLatestWithNotes(ctx, live.Symbol, mapper.OrderSideForPosition(live.Side))
	if err != nil {
		return fmt.Errorf("find noted order %s: %w", live.Key(), err)
	}
	if noted != nil {
		notes := *noted.Notes
		live.Notes = &notes
		fields["inherited_from"] = noted.OrderID
	}

	err = r.positions.Create(ctx, live)
	if errors.Is(err, repository.ErrOpenPositionExists) {
		// a concurrent pass created it first
		winner, findErr := r.positions.FindOpen(ctx, live.Symbol, live.Side)
		if findErr != nil {
			return fmt.Errorf("find open position %s: %w", live.Key(), findErr)
		}
		if winner == nil {
			return fmt.Errorf("create open position %s: %w", live.Key(), err)
		}
		if err := r.positions.UpdateLive(ctx, winner.ID, live); err != nil {
			return fmt.Errorf("update open position %s: %w", live.Key(), err)
		}
		report.Updated++
		return nil
	}
	if err != nil {
		return fmt.Errorf("create open position %s: %w", live.Key(), err)
	}

	logger.WithFields(fields).Info("Open position created")
	report.Created++
	return nil
}

type closeEvent struct {
	info     connectors.ClosedPnLInfo
	closedAt time.Time
	key      string
}

func (r *PositionReconciler) importClosed(ctx context.Context, active keySet, snapshotOK bool, report *Report) error {
	resp, err := r.client.GetClosedPnL(ctx, r.config.ClosedPnLLimit)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"reconciler": "positions",
			"op":         "GetClosedPnL",
		}).WithError(err).Error("Failed to fetch closed PnL")
		return fmt.Errorf("%w: closed pnl: %v", ErrRemoteCall, err)
	}
	if !resp.OK() {
		logger.WithFields(map[string]interface{}{
			"reconciler": "positions",
			"op":         "GetClosedPnL",
			"ret_code":   resp.RetCode,
			"ret_msg":    resp.RetMsg,
		}).Warn("Closed PnL call returned a non-success code, skipping")
		return fmt.Errorf("%w: closed pnl: retCode %d %s", ErrRemoteCall, resp.RetCode, resp.RetMsg)
	}

	events := make([]closeEvent, 0, len(resp.List))
	latest := map[string]time.Time{}

	for _, info := range resp.List {
		closedAt, ok := mapper.ClosedAt(info)
		if !ok {
			report.Skipped++
			continue
		}
		if closedAt.Before(r.config.HistoryStartDate) {
			report.Skipped++
			continue
		}

		key := model.PositionKey(info.Symbol, mapper.ClosedPnLSide(info.Side))
		events = append(events, closeEvent{info: info, closedAt: closedAt, key: key})
		if closedAt.After(latest[key]) {
			latest[key] = closedAt
		}
	}

	for _, ev := range events {
		closed := mapper.MapClosedPnL(ev.info, ev.closedAt)
		fields := map[string]interface{}{
			"reconciler": "positions",
			"symbol":     closed.Symbol,
			"side":       closed.Side,
			"closed_at":  ev.closedAt,
		}

		exists, err := r.positions.FindClosed(ctx, closed.Symbol, closed.Side, ev.closedAt)
		if err != nil {
			return fmt.Errorf("find closed position %s: %w", ev.key, err)
		}
		if exists != nil {
			report.Skipped++
			continue
		}

		open, err := r.positions.FindOpen(ctx, closed.Symbol, closed.Side)
		if err != nil {
			return fmt.Errorf("find open position %s: %w", ev.key, err)
		}

		partial := r.isPartial(ev, open, active, snapshotOK, latest)
		closed.Notes = r.seedNotes(open, partial)

		if open == nil {
			logger.WithFields(fields).Debug("Close event has no open counterpart, notes left empty")
		}

		if err := r.positions.Create(ctx, closed); err != nil {
			return fmt.Errorf("create closed position %s: %w", ev.key, err)
		}

		fields["partial"] = partial
		logger.WithFields(fields).Info("Closed position imported")
		report.Closed++
	}

	return nil
}

// isPartial decides whether a close event reduced a position that is still
// trading. A position still in the snapshot is partially closed; for one that
// left it, only its most recent close is the final one. Without a snapshot
// the OPEN row is the only evidence left.
func (r *PositionReconciler) isPartial(
	ev closeEvent,
	open *model.Position,
	active keySet,
	snapshotOK bool,
	latest map[string]time.Time,
) bool {
	if open == nil {
		return false
	}
	if !snapshotOK {
		return true
	}
	if active.has(ev.key) {
		return true
	}
	return ev.closedAt.Before(latest[ev.key])
}

func (r *PositionReconciler) seedNotes(open *model.Position, partial bool) *string {
	var base string
	if open != nil && open.Notes != nil {
		base = strings.TrimSpace(*open.Notes)
	}

	marker := r.config.PartialCloseMarker
	if !partial || marker == "" {
		return nilIfEmpty(base)
	}
	if base == "" {
		return &marker
	}
	notes := fmt.Sprintf("%s (%s)", base, marker)
	return &notes
}

func (r *PositionReconciler) removeStale(ctx context.Context, active keySet, report *Report) error {
	open, err := r.positions.ListByStatus(ctx, model.PositionStatusOpen)
	if err != nil {
		return fmt.Errorf("list open positions: %w", err)
	}

	for _, position := range open {
		if active.has(position.Key()) {
			continue
		}

		deleted, err := r.positions.DeleteOpen(ctx, position.ID)
		if err != nil {
			return fmt.Errorf("delete stale position %s: %w", position.Key(), err)
		}
		if deleted > 0 {
			logger.WithFields(map[string]interface{}{
				"reconciler": "positions",
				"symbol":     position.Symbol,
				"side":       position.Side,
				"id":         position.ID,
			}).Info("Stale open position removed")
			report.Deleted++
		}
	}

	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
