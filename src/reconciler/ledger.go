package reconciler

import (
	"context"
	"errors"
	"time"

	"tradejournal/src/connectors"
	"tradejournal/src/model"
)

// ErrRemoteCall marks an invocation that skipped work because the venue
// failed to answer or answered with a non-success code.
var ErrRemoteCall = errors.New("remote call failed")

type positionSource interface {
	GetOpenPositions(ctx context.Context) (*connectors.PositionListResponse, error)
	GetClosedPnL(ctx context.Context, limit int) (*connectors.ClosedPnLListResponse, error)
}

type orderSource interface {
	GetActiveOrders(ctx context.Context) (*connectors.OrderListResponse, error)
	GetOrderHistory(ctx context.Context, orderID string, limit int) (*connectors.OrderListResponse, error)
}

type positionLedger interface {
	FindOpen(ctx context.Context, symbol, side string) (*model.Position, error)
	FindClosed(ctx context.Context, symbol, side string, closedAt time.Time) (*model.Position, error)
	ListByStatus(ctx context.Context, status string) ([]model.Position, error)
	Create(ctx context.Context, position *model.Position) error
	UpdateLive(ctx context.Context, id uint, live *model.Position) error
	DeleteOpen(ctx context.Context, id uint) (int64, error)
}

type noteSource interface {
	FindLatestWithNotes(ctx context.Context, symbol, side string) (*model.Order, error)
}

type orderLedger interface {
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	ListUnresolved(ctx context.Context) ([]model.Order, error)
	Upsert(ctx context.Context, order *model.Order) (bool, error)
	UpdateTerminal(ctx context.Context, orderID string, status string, filledQuantity float64) (bool, error)
}

// Report counts what one invocation changed.
type Report struct {
	Created    int
	Updated    int
	Closed     int
	Deleted    int
	Resolved   int
	Unresolved int
	Skipped    int
}

// keySet is the set of natural keys present in one remote snapshot.
type keySet map[string]struct{}

func (s keySet) add(key string) { s[key] = struct{}{} }

func (s keySet) has(key string) bool {
	_, ok := s[key]
	return ok
}
