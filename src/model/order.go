package model

import "time"

// Venue order statuses. The first three are "open". Triggered is the brief
// state of a conditional order on its way to New and is neither open nor terminal.
const (
	OrderStatusNew             = "New"
	OrderStatusPartiallyFilled = "PartiallyFilled"
	OrderStatusUntriggered     = "Untriggered"

	OrderStatusFilled                  = "Filled"
	OrderStatusCancelled               = "Cancelled"
	OrderStatusRejected                = "Rejected"
	OrderStatusPartiallyFilledCanceled = "PartiallyFilledCanceled"
	OrderStatusDeactivated             = "Deactivated"
	OrderStatusTriggered               = "Triggered"
)

const (
	OrderSideBuy  = "Buy"
	OrderSideSell = "Sell"
)

// OpenOrderStatuses lists the statuses an order may hold before it reaches a terminal one.
var OpenOrderStatuses = []string{
	OrderStatusNew,
	OrderStatusPartiallyFilled,
	OrderStatusUntriggered,
}

// TerminalOrderStatuses lists the statuses an order never leaves.
var TerminalOrderStatuses = []string{
	OrderStatusFilled,
	OrderStatusCancelled,
	OrderStatusRejected,
	OrderStatusPartiallyFilledCanceled,
	OrderStatusDeactivated,
}

// IsTerminalOrderStatus reports whether status belongs to the terminal set.
func IsTerminalOrderStatus(status string) bool {
	for _, s := range TerminalOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsOpenOrderStatus reports whether status belongs to the open set.
func IsOpenOrderStatus(status string) bool {
	for _, s := range OpenOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order represents one order as known to the venue, keyed by the exchange order id.
type Order struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	OrderID        string   `gorm:"size:100;not null;uniqueIndex" json:"order_id"`
	Symbol         string   `gorm:"size:50;not null;index:idx_orders_symbol_side,priority:1" json:"symbol"`
	Type           string   `gorm:"size:30" json:"type"`
	Side           string   `gorm:"size:10;index:idx_orders_symbol_side,priority:2" json:"side"`
	Price          float64  `json:"price"`
	Quantity       float64  `json:"qty"`
	FilledQuantity float64  `json:"filled_qty"`
	TriggerPrice   *float64 `json:"trigger_price,omitempty"`
	IsReduceOnly   bool     `json:"is_reduce_only"`
	Status         string   `gorm:"size:50;not null;index" json:"status"`

	// Notes are only ever written by the manual notes endpoint.
	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}
