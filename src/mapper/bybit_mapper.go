package mapper

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/connectors"
	"tradejournal/src/model"
)

var hundred = decimal.NewFromInt(100)

// parseDecimalSafe parses a venue numeric string. Empty or malformed values
// are logged and defaulted to 0 instead of aborting the whole mapping.
func parseDecimalSafe(field, v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		logger.WithFields(map[string]interface{}{
			"field": field,
		}).Debug("Empty numeric field received, defaulting to 0")
		return decimal.Zero
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).WithError(err).Error("Failed to parse decimal from Bybit response field; defaulting to 0")
		return decimal.Zero
	}
	return d
}

func parseFloatSafe(field, v string) float64 {
	return parseDecimalSafe(field, v).InexactFloat64()
}

// optionalPrice maps empty or zero prices (Bybit sends "" or "0" for unset
// TP/SL/liq/trigger) to nil.
func optionalPrice(field, v string) *float64 {
	d := parseDecimalSafe(field, v)
	if d.IsZero() {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// parseMillis converts a venue millisecond timestamp to UTC.
func parseMillis(field, v string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || ms <= 0 {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).Warn("Invalid millisecond timestamp in Bybit response")
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// PositionSide derives the journal side from the raw Buy/Sell indicator of an open position.
func PositionSide(rawSide string) string {
	if rawSide == model.OrderSideBuy {
		return model.PositionSideLong
	}
	return model.PositionSideShort
}

// OrderSideForPosition is the raw side of the order that opens a position of the given side.
func OrderSideForPosition(side string) string {
	if side == model.PositionSideLong {
		return model.OrderSideBuy
	}
	return model.OrderSideSell
}

// ClosedPnLSide derives the side of the closed position. The side field of
// GET /v5/position/closed-pnl is the side of the closing order, not of the
// position, so a Sell closes a LONG and a Buy closes a SHORT.
func ClosedPnLSide(rawSide string) string {
	if rawSide == model.OrderSideSell {
		return model.PositionSideLong
	}
	return model.PositionSideShort
}

// HasExposure reports whether a snapshot entry holds a strictly positive size.
func HasExposure(info connectors.PositionInfo) bool {
	return parseDecimalSafe("size", info.Size).IsPositive()
}

// UnrealizedRoi returns unrealisedPnl / positionIM * 100, or 0 when IM is 0.
func UnrealizedRoi(unrealisedPnl, positionIM string) float64 {
	im := parseDecimalSafe("positionIM", positionIM)
	if im.IsZero() {
		return 0
	}
	return parseDecimalSafe("unrealisedPnl", unrealisedPnl).
		Div(im).
		Mul(hundred).
		Round(4).
		InexactFloat64()
}

// MapPositionInfo converts an open-position snapshot entry into an OPEN row.
// Notes are left nil; the reconciler decides about inheritance.
func MapPositionInfo(info connectors.PositionInfo) *model.Position {
	logger.WithFields(map[string]interface{}{
		"mapper": "MapPositionInfo",
		"symbol": info.Symbol,
		"side":   info.Side,
		"size":   info.Size,
	}).Debug("Mapping Bybit position to journal row")

	entry := parseFloatSafe("avgPrice", info.AvgPrice)

	return &model.Position{
		Symbol:            info.Symbol,
		Side:              PositionSide(info.Side),
		Quantity:          parseFloatSafe("size", info.Size),
		Value:             parseFloatSafe("positionValue", info.PositionValue),
		EntryPrice:        entry,
		MarkPrice:         parseFloatSafe("markPrice", info.MarkPrice),
		LiqPrice:          optionalPrice("liqPrice", info.LiqPrice),
		BreakEvenPrice:    entry,
		InitialMargin:     parseFloatSafe("positionIM", info.PositionIM),
		MaintenanceMargin: parseFloatSafe("positionMM", info.PositionMM),
		UnrealizedPnl:     parseFloatSafe("unrealisedPnl", info.UnrealisedPnl),
		UnrealizedRoi:     UnrealizedRoi(info.UnrealisedPnl, info.PositionIM),
		RealizedPnl:       parseFloatSafe("cumRealisedPnl", info.CumRealisedPnl),
		TakeProfit:        optionalPrice("takeProfit", info.TakeProfit),
		StopLoss:          optionalPrice("stopLoss", info.StopLoss),
		Leverage:          parseFloatSafe("leverage", info.Leverage),
		IsCross:           info.TradeMode == 0,
		Status:            model.PositionStatusOpen,
	}
}

// ClosedAt returns the close instant of a realized-PnL event (updatedTime, UTC).
func ClosedAt(info connectors.ClosedPnLInfo) (time.Time, bool) {
	return parseMillis("updatedTime", info.UpdatedTime)
}

// MapClosedPnL converts a realized-close event into a CLOSED row. The exit
// price doubles as mark price and the unrealized fields are zero. The feed
// carries no margin mode, so the row is flagged cross.
func MapClosedPnL(info connectors.ClosedPnLInfo, closedAt time.Time) *model.Position {
	exit := parseFloatSafe("avgExitPrice", info.AvgExitPrice)
	closed := closedAt.UTC()

	qty := parseDecimalSafe("closedSize", info.ClosedSize)
	if qty.IsZero() {
		qty = parseDecimalSafe("qty", info.Qty)
	}

	return &model.Position{
		Symbol:         info.Symbol,
		Side:           ClosedPnLSide(info.Side),
		Quantity:       qty.InexactFloat64(),
		Value:          parseFloatSafe("cumEntryValue", info.CumEntryValue),
		EntryPrice:     parseFloatSafe("avgEntryPrice", info.AvgEntryPrice),
		BreakEvenPrice: parseFloatSafe("avgEntryPrice", info.AvgEntryPrice),
		MarkPrice:      exit,
		ExitPrice:      &exit,
		RealizedPnl:    parseFloatSafe("closedPnl", info.ClosedPnl),
		Leverage:       parseFloatSafe("leverage", info.Leverage),
		IsCross:        true,
		Status:         model.PositionStatusClosed,
		ClosedAt:       &closed,
	}
}

// MapOrderInfo converts an active-order snapshot entry into an Order row.
func MapOrderInfo(info connectors.OrderInfo) *model.Order {
	return &model.Order{
		OrderID:        info.OrderID,
		Symbol:         info.Symbol,
		Type:           info.OrderType,
		Side:           info.Side,
		Price:          parseFloatSafe("price", info.Price),
		Quantity:       parseFloatSafe("qty", info.Qty),
		FilledQuantity: parseFloatSafe("cumExecQty", info.CumExecQty),
		TriggerPrice:   optionalPrice("triggerPrice", info.TriggerPrice),
		IsReduceOnly:   info.ReduceOnly,
		Status:         info.OrderStatus,
	}
}

// FilledQuantity parses the final filled quantity of a history entry.
func FilledQuantity(info connectors.OrderInfo) float64 {
	return parseFloatSafe("cumExecQty", info.CumExecQty)
}
