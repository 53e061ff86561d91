package model

import "time"

// Position is one lifecycle instance of a directional exposure in one symbol.
// At most one OPEN row exists per (symbol, side); CLOSED rows are history
// imported from the venue's realized-PnL feed.
type Position struct {
	ID                uint     `gorm:"primaryKey" json:"id"`
	Symbol            string   `gorm:"size:50;not null;index:idx_positions_lookup,priority:1" json:"symbol"`
	Side              string   `gorm:"size:10;not null;index:idx_positions_lookup,priority:2" json:"side"`
	Quantity          float64  `json:"qty"`
	Value             float64  `json:"value"`
	EntryPrice        float64  `json:"entry_price"`
	MarkPrice         float64  `json:"mark_price"`
	LiqPrice          *float64 `json:"liq_price,omitempty"`
	BreakEvenPrice    float64  `json:"break_even_price"`
	InitialMargin     float64  `json:"im"`
	MaintenanceMargin float64  `json:"mm"`
	UnrealizedPnl     float64  `json:"unrealized_pnl"`
	UnrealizedRoi     float64  `json:"unrealized_roi"`
	RealizedPnl       float64  `json:"realized_pnl"`
	TakeProfit        *float64 `json:"tp,omitempty"`
	StopLoss          *float64 `json:"sl,omitempty"`
	Leverage          float64  `json:"leverage"`
	IsCross           bool     `json:"is_cross"`

	// Notes are user-authored and survive every automated update.
	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	Status    string     `gorm:"size:10;not null;default:OPEN;index:idx_positions_lookup,priority:3" json:"status"`
	ExitPrice *float64   `json:"exit_price,omitempty"`
	ClosedAt  *time.Time `gorm:"index" json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const (
	PositionStatusOpen   = "OPEN"
	PositionStatusClosed = "CLOSED"

	PositionSideLong  = "LONG"
	PositionSideShort = "SHORT"
)

// TableName keeps the table name stable across datastores.
func (Position) TableName() string {
	return "positions"
}

// Key returns the (symbol, side) natural key used to match snapshot entries.
func (p Position) Key() string {
	return PositionKey(p.Symbol, p.Side)
}

// PositionKey builds the (symbol, side) key.
func PositionKey(symbol, side string) string {
	return symbol + "_" + side
}
