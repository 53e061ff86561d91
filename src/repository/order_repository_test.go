package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradejournal/src/database/dbtest"
	"tradejournal/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func activeOrder(orderID, status string) *model.Order {
	return &model.Order{
		OrderID:  orderID,
		Symbol:   "ADAUSDT",
		Type:     "Limit",
		Side:     model.OrderSideBuy,
		Price:    0.33,
		Quantity: 100,
		Status:   status,
	}
}

func TestOrderRepositoryUpsertSQLShape(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "orders" .* ON CONFLICT \("order_id"\) DO UPDATE SET .*"status"="excluded"."status".* WHERE \(?"orders"."status" NOT IN \(.+\) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	written, err := repo.Upsert(context.Background(), activeOrder("abc", model.OrderStatusNew))
	if err != nil {
		t.Fatalf("unexpected error upserting order: %v", err)
	}
	if !written {
		t.Fatalf("expected the upsert to report a written row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryUpsertPreservesNotes(t *testing.T) {
	repo := (&OrderRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, activeOrder("abc", model.OrderStatusNew))
	require.NoError(t, err)

	stored, err := repo.FindByOrderID(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = repo.UpdateNotes(ctx, stored.ID, ptrString("tp1"))
	require.NoError(t, err)

	refreshed := activeOrder("abc", model.OrderStatusPartiallyFilled)
	refreshed.FilledQuantity = 40
	refreshed.Price = 0.34
	written, err := repo.Upsert(ctx, refreshed)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := repo.FindByOrderID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, model.OrderStatusPartiallyFilled, got.Status)
	assert.Equal(t, 40.0, got.FilledQuantity)
	assert.Equal(t, 0.34, got.Price)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "tp1", *got.Notes)

	var count int64
	require.NoError(t, repo.db.Model(&model.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOrderRepositoryTerminalOrdersAreNeverRevived(t *testing.T) {
	repo := (&OrderRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, activeOrder("abc", model.OrderStatusNew))
	require.NoError(t, err)

	resolved, err := repo.UpdateTerminal(ctx, "abc", model.OrderStatusFilled, 100)
	require.NoError(t, err)
	assert.True(t, resolved)

	// a second terminal write is a no-op
	again, err := repo.UpdateTerminal(ctx, "abc", model.OrderStatusCancelled, 0)
	require.NoError(t, err)
	assert.False(t, again)

	written, err := repo.Upsert(ctx, activeOrder("abc", model.OrderStatusNew))
	require.NoError(t, err)
	assert.False(t, written)

	got, err := repo.FindByOrderID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, got.Status)
	assert.Equal(t, 100.0, got.FilledQuantity)
}

func TestOrderRepositoryUpsertRefreshesTriggeredOrders(t *testing.T) {
	repo := (&OrderRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, activeOrder("abc", model.OrderStatusTriggered))
	require.NoError(t, err)

	written, err := repo.Upsert(ctx, activeOrder("abc", model.OrderStatusNew))
	require.NoError(t, err)
	assert.True(t, written)

	resolved, err := repo.UpdateTerminal(ctx, "abc", model.OrderStatusFilled, 100)
	require.NoError(t, err)
	assert.True(t, resolved)

	got, err := repo.FindByOrderID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, got.Status)
}

func TestOrderRepositoryFindLatestWithNotes(t *testing.T) {
	db := dbtest.New(t)
	repo := (&OrderRepository{}).WithDB(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	older := activeOrder("o-1", model.OrderStatusFilled)
	older.Notes = ptrString("first idea")
	older.CreatedAt = base
	require.NoError(t, db.Create(older).Error)

	newer := activeOrder("o-2", model.OrderStatusFilled)
	newer.Notes = ptrString("take profit target 1")
	newer.CreatedAt = base.Add(time.Hour)
	require.NoError(t, db.Create(newer).Error)

	empty := activeOrder("o-3", model.OrderStatusNew)
	empty.Notes = ptrString("")
	empty.CreatedAt = base.Add(2 * time.Hour)
	require.NoError(t, db.Create(empty).Error)

	other := activeOrder("o-4", model.OrderStatusNew)
	other.Side = model.OrderSideSell
	other.Notes = ptrString("short idea")
	other.CreatedAt = base.Add(3 * time.Hour)
	require.NoError(t, db.Create(other).Error)

	got, err := repo.FindLatestWithNotes(ctx, "ADAUSDT", model.OrderSideBuy)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "o-2", got.OrderID)

	none, err := repo.FindLatestWithNotes(ctx, "BTCUSDT", model.OrderSideBuy)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestOrderRepositoryListUnresolvedAndSearch(t *testing.T) {
	repo := (&OrderRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	for _, o := range []struct{ id, status string }{
		{"a", model.OrderStatusNew},
		{"b", model.OrderStatusUntriggered},
		{"c", model.OrderStatusFilled},
		{"d", model.OrderStatusTriggered},
	} {
		_, err := repo.Upsert(ctx, activeOrder(o.id, o.status))
		require.NoError(t, err)
	}

	pending, err := repo.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].OrderID)
	assert.Equal(t, "b", pending[1].OrderID)
	assert.Equal(t, "d", pending[2].OrderID)

	filled, err := repo.Search(ctx, OrderSearchOptions{Statuses: []string{model.OrderStatusFilled}})
	require.NoError(t, err)
	require.Len(t, filled, 1)
	assert.Equal(t, "c", filled[0].OrderID)
}

func TestSyncRunRepositoryFindLatest(t *testing.T) {
	repo := (&SyncRunRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, kind := range []string{model.SyncKindPositions, model.SyncKindOrders, model.SyncKindPositions} {
		run := &model.SyncRun{
			RunID:      "run",
			Kind:       kind,
			Success:    true,
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
			FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
		}
		require.NoError(t, repo.Create(ctx, run))
	}

	positions, err := repo.FindLatest(ctx, model.SyncKindPositions, 10)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.True(t, positions[0].StartedAt.After(positions[1].StartedAt))

	all, err := repo.FindLatest(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
