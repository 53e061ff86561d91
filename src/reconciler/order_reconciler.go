package reconciler

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/mapper"
	"tradejournal/src/model"
)

// OrderReconciler mirrors the venue's active orders into the order ledger and
// resolves the terminal status of orders that left the active set.
type OrderReconciler struct {
	client orderSource
	orders orderLedger
}

func NewOrderReconciler(client orderSource, orders orderLedger) *OrderReconciler {
	return &OrderReconciler{
		client: client,
		orders: orders,
	}
}

// Reconcile runs one pass. Without an active snapshot nothing is touched,
// since every locally open order would look missing. A failed or empty
// history lookup leaves that order unresolved for the next pass.
func (r *OrderReconciler) Reconcile(ctx context.Context) (Report, error) {
	var report Report

	// ------------------------------------------------------------------
	// 1) Upsert the active snapshot
	// ------------------------------------------------------------------
	resp, err := r.client.GetActiveOrders(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"reconciler": "orders",
			"op":         "GetActiveOrders",
		}).WithError(err).Error("Failed to fetch active orders")
		return report, fmt.Errorf("%w: active orders: %v", ErrRemoteCall, err)
	}
	if !resp.OK() {
		logger.WithFields(map[string]interface{}{
			"reconciler": "orders",
			"op":         "GetActiveOrders",
			"ret_code":   resp.RetCode,
			"ret_msg":    resp.RetMsg,
		}).Warn("Active orders call returned a non-success code, skipping")
		return report, fmt.Errorf("%w: active orders: retCode %d %s", ErrRemoteCall, resp.RetCode, resp.RetMsg)
	}

	seen := keySet{}
	for _, info := range resp.List {
		if info.OrderID == "" {
			logger.WithField("symbol", info.Symbol).Warn("Active order without id, ignoring")
			report.Skipped++
			continue
		}
		seen.add(info.OrderID)

		if err := r.upsert(ctx, mapper.MapOrderInfo(info), &report); err != nil {
			return report, err
		}
	}

	// ------------------------------------------------------------------
	// 2) Resolve locally non-terminal orders missing from the snapshot
	// ------------------------------------------------------------------
	pending, err := r.orders.ListUnresolved(ctx)
	if err != nil {
		return report, fmt.Errorf("list unresolved orders: %w", err)
	}

	var remoteErrs []error
	for _, order := range pending {
		if seen.has(order.OrderID) {
			continue
		}

		if err := r.resolve(ctx, order, &report); err != nil {
			if !errors.Is(err, ErrRemoteCall) {
				return report, err
			}
			remoteErrs = append(remoteErrs, err)
		}
	}

	logger.WithFields(map[string]interface{}{
		"reconciler": "orders",
		"created":    report.Created,
		"updated":    report.Updated,
		"resolved":   report.Resolved,
		"unresolved": report.Unresolved,
		"skipped":    report.Skipped,
	}).Info("Order reconciliation finished")

	return report, errors.Join(remoteErrs...)
}

func (r *OrderReconciler) upsert(ctx context.Context, order *model.Order, report *Report) error {
	existing, err := r.orders.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		return fmt.Errorf("find order %s: %w", order.OrderID, err)
	}

	written, err := r.orders.Upsert(ctx, order)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}

	switch {
	case !written:
		logger.WithFields(map[string]interface{}{
			"reconciler": "orders",
			"order_id":   order.OrderID,
			"status":     order.Status,
		}).Debug("Order already terminal locally, snapshot ignored")
		report.Skipped++
	case existing == nil:
		report.Created++
	default:
		report.Updated++
	}

	return nil
}

func (r *OrderReconciler) resolve(ctx context.Context, order model.Order, report *Report) error {
	fields := map[string]interface{}{
		"reconciler": "orders",
		"order_id":   order.OrderID,
		"symbol":     order.Symbol,
	}

	resp, err := r.client.GetOrderHistory(ctx, order.OrderID, 1)
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("Order history lookup failed, leaving unresolved")
		report.Unresolved++
		return fmt.Errorf("%w: order history %s: %v", ErrRemoteCall, order.OrderID, err)
	}
	if !resp.OK() {
		fields["ret_code"] = resp.RetCode
		fields["ret_msg"] = resp.RetMsg
		logger.WithFields(fields).Warn("Order history returned a non-success code, leaving unresolved")
		report.Unresolved++
		return fmt.Errorf("%w: order history %s: retCode %d %s", ErrRemoteCall, order.OrderID, resp.RetCode, resp.RetMsg)
	}
	if len(resp.List) == 0 {
		logger.WithFields(fields).Info("Order not in history yet, leaving unresolved")
		report.Unresolved++
		return nil
	}

	final := resp.List[0]
	if !model.IsTerminalOrderStatus(final.OrderStatus) {
		fields["status"] = final.OrderStatus
		logger.WithFields(fields).Info("History still reports a live status, leaving unresolved")
		report.Unresolved++
		return nil
	}

	updated, err := r.orders.UpdateTerminal(ctx, order.OrderID, final.OrderStatus, mapper.FilledQuantity(final))
	if err != nil {
		return fmt.Errorf("resolve order %s: %w", order.OrderID, err)
	}
	if updated {
		fields["status"] = final.OrderStatus
		logger.WithFields(fields).Info("Order resolved to terminal status")
		report.Resolved++
	}

	return nil
}
