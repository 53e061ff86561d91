package reconciler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"tradejournal/src/connectors"
	"tradejournal/src/database/dbtest"
	"tradejournal/src/repository"
)

// fakeVenue serves canned snapshots. Nil responses are empty successful lists.
type fakeVenue struct {
	mu sync.Mutex

	positions    *connectors.PositionListResponse
	positionsErr error
	closed       *connectors.ClosedPnLListResponse
	closedErr    error
	closedLimit  int

	orders     *connectors.OrderListResponse
	ordersErr  error
	history    map[string]*connectors.OrderListResponse
	historyErr map[string]error
	lookups    []string
}

func (f *fakeVenue) GetOpenPositions(ctx context.Context) (*connectors.PositionListResponse, error) {
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	if f.positions == nil {
		return &connectors.PositionListResponse{}, nil
	}
	return f.positions, nil
}

func (f *fakeVenue) GetClosedPnL(ctx context.Context, limit int) (*connectors.ClosedPnLListResponse, error) {
	f.mu.Lock()
	f.closedLimit = limit
	f.mu.Unlock()

	if f.closedErr != nil {
		return nil, f.closedErr
	}
	if f.closed == nil {
		return &connectors.ClosedPnLListResponse{}, nil
	}
	return f.closed, nil
}

func (f *fakeVenue) GetActiveOrders(ctx context.Context) (*connectors.OrderListResponse, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	if f.orders == nil {
		return &connectors.OrderListResponse{}, nil
	}
	return f.orders, nil
}

func (f *fakeVenue) GetOrderHistory(ctx context.Context, orderID string, limit int) (*connectors.OrderListResponse, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, orderID)
	f.mu.Unlock()

	if err := f.historyErr[orderID]; err != nil {
		return nil, err
	}
	if resp, ok := f.history[orderID]; ok {
		return resp, nil
	}
	return &connectors.OrderListResponse{}, nil
}

var errVenueDown = errors.New("connection reset by peer")

func testConfig() Config {
	return Config{
		HistoryStartDate:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		ClosedPnLLimit:     50,
		PartialCloseMarker: "Partially Closed",
	}
}

type ledgers struct {
	db        *gorm.DB
	positions *repository.PositionRepository
	orders    *repository.OrderRepository
}

func newLedgers(t *testing.T) ledgers {
	t.Helper()
	db := dbtest.New(t)
	return ledgers{
		db:        db,
		positions: (&repository.PositionRepository{}).WithDB(db),
		orders:    (&repository.OrderRepository{}).WithDB(db),
	}
}

func (l ledgers) positionReconciler(venue *fakeVenue) *PositionReconciler {
	return NewPositionReconciler(venue, l.positions, l.orders, testConfig())
}

func (l ledgers) orderReconciler(venue *fakeVenue) *OrderReconciler {
	return NewOrderReconciler(venue, l.orders)
}

func positionsOf(list ...connectors.PositionInfo) *connectors.PositionListResponse {
	return &connectors.PositionListResponse{List: list}
}

func closedOf(list ...connectors.ClosedPnLInfo) *connectors.ClosedPnLListResponse {
	return &connectors.ClosedPnLListResponse{List: list}
}

func ordersOf(list ...connectors.OrderInfo) *connectors.OrderListResponse {
	return &connectors.OrderListResponse{List: list}
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func ptrString(val string) *string {
	return &val
}
