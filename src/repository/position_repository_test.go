package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/database/dbtest"
	"tradejournal/src/model"
)

func ptrString(val string) *string {
	return &val
}

func ptrFloat(val float64) *float64 {
	return &val
}

func openPosition(symbol, side string) *model.Position {
	return &model.Position{
		Symbol:     symbol,
		Side:       side,
		Quantity:   1,
		EntryPrice: 100,
		Status:     model.PositionStatusOpen,
	}
}

func TestPositionRepositoryCreateRejectsSecondOpenRow(t *testing.T) {
	repo := (&PositionRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, openPosition("BTCUSDT", model.PositionSideLong)))

	err := repo.Create(ctx, openPosition("BTCUSDT", model.PositionSideLong))
	require.ErrorIs(t, err, ErrOpenPositionExists)

	// the opposite side and closed history are unaffected by the index
	require.NoError(t, repo.Create(ctx, openPosition("BTCUSDT", model.PositionSideShort)))

	closedAt := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	closed := openPosition("BTCUSDT", model.PositionSideLong)
	closed.Status = model.PositionStatusClosed
	closed.ClosedAt = &closedAt
	require.NoError(t, repo.Create(ctx, closed))

	open, err := repo.ListByStatus(ctx, model.PositionStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestPositionRepositoryFindOpenAndClosed(t *testing.T) {
	repo := (&PositionRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	missing, err := repo.FindOpen(ctx, "ETHUSDT", model.PositionSideShort)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Create(ctx, openPosition("ETHUSDT", model.PositionSideShort)))

	found, err := repo.FindOpen(ctx, "ETHUSDT", model.PositionSideShort)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, model.PositionStatusOpen, found.Status)

	// a non-UTC instant must still match the stored close
	closedAt := time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC)
	closed := openPosition("ETHUSDT", model.PositionSideShort)
	closed.Status = model.PositionStatusClosed
	closed.ClosedAt = &closedAt
	require.NoError(t, repo.Create(ctx, closed))

	inOtherZone := closedAt.In(time.FixedZone("UTC+3", 3*3600))
	hit, err := repo.FindClosed(ctx, "ETHUSDT", model.PositionSideShort, inOtherZone)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, closed.ID, hit.ID)

	miss, err := repo.FindClosed(ctx, "ETHUSDT", model.PositionSideShort, closedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestPositionRepositoryUpdateLiveKeepsNotes(t *testing.T) {
	repo := (&PositionRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	existing := openPosition("ADAUSDT", model.PositionSideLong)
	existing.Notes = ptrString("swing entry")
	existing.TakeProfit = ptrFloat(0.5)
	require.NoError(t, repo.Create(ctx, existing))

	live := openPosition("ADAUSDT", model.PositionSideLong)
	live.Quantity = 14983
	live.EntryPrice = 0.3337
	live.UnrealizedPnl = 12.5
	live.TakeProfit = nil
	require.NoError(t, repo.UpdateLive(ctx, existing.ID, live))

	got, err := repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 14983.0, got.Quantity)
	assert.Equal(t, 0.3337, got.EntryPrice)
	assert.Equal(t, 12.5, got.UnrealizedPnl)
	assert.Nil(t, got.TakeProfit)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "swing entry", *got.Notes)
}

func TestPositionRepositoryUpdateLiveIgnoresClosedRows(t *testing.T) {
	repo := (&PositionRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	closedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	closed := openPosition("SOLUSDT", model.PositionSideLong)
	closed.Status = model.PositionStatusClosed
	closed.ClosedAt = &closedAt
	require.NoError(t, repo.Create(ctx, closed))

	err := repo.UpdateLive(ctx, closed.ID, openPosition("SOLUSDT", model.PositionSideLong))
	require.Error(t, err)

	deleted, err := repo.DeleteOpen(ctx, closed.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestPositionRepositoryUpdateNotesAndSearch(t *testing.T) {
	repo := (&PositionRepository{}).WithDB(dbtest.New(t))
	ctx := context.Background()

	first := openPosition("BTCUSDT", model.PositionSideLong)
	require.NoError(t, repo.Create(ctx, first))
	second := openPosition("ETHUSDT", model.PositionSideLong)
	require.NoError(t, repo.Create(ctx, second))

	updated, err := repo.UpdateNotes(ctx, first.ID, ptrString("breakout"))
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "breakout", *updated.Notes)

	none, err := repo.UpdateNotes(ctx, 9999, ptrString("x"))
	require.NoError(t, err)
	assert.Nil(t, none)

	results, err := repo.Search(ctx, PositionSearchOptions{Status: model.PositionStatusOpen, Symbol: "ETHUSDT"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, second.ID, results[0].ID)

	page, err := repo.Search(ctx, PositionSearchOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
}
