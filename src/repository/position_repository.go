package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// ErrOpenPositionExists is returned by Create when another OPEN row for the
// same (symbol, side) won the insert.
var ErrOpenPositionExists = errors.New("open position already exists for symbol and side")

// PositionRepository is the position ledger.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main read/write database.
func NewPositionRepository() *PositionRepository {
	logger.WithField("component", "PositionRepository").
		Debug("Creating new PositionRepository with MainDB")

	return &PositionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// PositionSearchOptions filters the listing endpoint.
type PositionSearchOptions struct {
	Status string
	Symbol string
	Limit  int
	Offset int
}

// FindBySymbolSideStatus returns the row for (symbol, side, status).
// Returns (nil, nil) if no row matches. For OPEN the partial unique index
// guarantees at most one; for CLOSED the most recent close is returned.
func (r *PositionRepository) FindBySymbolSideStatus(
	ctx context.Context,
	symbol, side, status string,
) (*model.Position, error) {

	var position model.Position

	err := r.db.WithContext(ctx).
		Where("symbol = ? AND side = ? AND status = ?", symbol, side, status).
		Order("closed_at DESC").
		Order("id DESC").
		First(&position).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "FindBySymbolSideStatus",
			"symbol": symbol,
			"side":   side,
			"status": status,
		}).WithError(err).Error("Failed to fetch position")

		return nil, err
	}

	return &position, nil
}

// FindOpen returns the OPEN row for (symbol, side), or (nil, nil).
func (r *PositionRepository) FindOpen(ctx context.Context, symbol, side string) (*model.Position, error) {
	return r.FindBySymbolSideStatus(ctx, symbol, side, model.PositionStatusOpen)
}

// FindClosed returns the CLOSED row identified by (symbol, side, closedAt).
// Returns (nil, nil) if the close event has not been imported yet.
func (r *PositionRepository) FindClosed(
	ctx context.Context,
	symbol, side string,
	closedAt time.Time,
) (*model.Position, error) {

	var position model.Position

	err := r.db.WithContext(ctx).
		Where("symbol = ? AND side = ? AND status = ? AND closed_at = ?",
			symbol, side, model.PositionStatusClosed, closedAt.UTC()).
		First(&position).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":      "PositionRepository",
			"op":        "FindClosed",
			"symbol":    symbol,
			"side":      side,
			"closed_at": closedAt,
		}).WithError(err).Error("Failed to fetch closed position")

		return nil, err
	}

	return &position, nil
}

// FindByID fetches a single position by its primary ID.
// Returns (nil, nil) if the position is not found.
func (r *PositionRepository) FindByID(ctx context.Context, id uint) (*model.Position, error) {
	var position model.Position

	err := r.db.WithContext(ctx).First(&position, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &position, nil
}

// ListByStatus returns every row with the given status.
func (r *PositionRepository) ListByStatus(ctx context.Context, status string) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "ListByStatus",
			"status": status,
		}).WithError(err).Error("Failed to list positions")

		return nil, err
	}

	return positions, nil
}

// Search lists positions for rendering, newest first.
func (r *PositionRepository) Search(ctx context.Context, opts PositionSearchOptions) ([]model.Position, error) {
	query := r.db.WithContext(ctx).Model(&model.Position{})

	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Symbol != "" {
		query = query.Where("symbol = ?", opts.Symbol)
	}

	query = query.Order("created_at DESC").Order("id DESC")

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var positions []model.Position
	if err := query.Find(&positions).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search positions")

		return nil, err
	}

	return positions, nil
}

// Create inserts a new position. Timestamps are normalised to UTC.
// Returns ErrOpenPositionExists when an OPEN row for the same key already exists.
func (r *PositionRepository) Create(ctx context.Context, position *model.Position) error {
	if position.ClosedAt != nil {
		closedAt := position.ClosedAt.UTC()
		position.ClosedAt = &closedAt
	}

	err := r.db.WithContext(ctx).Create(position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && position.Status == model.PositionStatusOpen {
			return ErrOpenPositionExists
		}

		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "Create",
			"symbol": position.Symbol,
			"side":   position.Side,
			"status": position.Status,
		}).WithError(err).Error("Failed to create position")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "Create",
		"id":     position.ID,
		"symbol": position.Symbol,
		"side":   position.Side,
		"status": position.Status,
	}).Info("Position created")

	return nil
}

// UpdateLive refreshes the quantitative fields of an OPEN row in place.
// Notes, status and identity are never touched. Returns gorm.ErrRecordNotFound
// if the row is gone or no longer OPEN.
func (r *PositionRepository) UpdateLive(ctx context.Context, id uint, live *model.Position) error {
	updates := map[string]interface{}{
		"quantity":           live.Quantity,
		"value":              live.Value,
		"entry_price":        live.EntryPrice,
		"mark_price":         live.MarkPrice,
		"liq_price":          live.LiqPrice,
		"break_even_price":   live.BreakEvenPrice,
		"initial_margin":     live.InitialMargin,
		"maintenance_margin": live.MaintenanceMargin,
		"unrealized_pnl":     live.UnrealizedPnl,
		"unrealized_roi":     live.UnrealizedRoi,
		"realized_pnl":       live.RealizedPnl,
		"take_profit":        live.TakeProfit,
		"stop_loss":          live.StopLoss,
		"leverage":           live.Leverage,
		"is_cross":           live.IsCross,
		"updated_at":         time.Now().UTC(),
	}

	res := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Updates(updates)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "UpdateLive",
			"id":   id,
		}).WithError(res.Error).Error("Failed to update open position")

		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateNotes sets the user-authored notes of any row, OPEN or CLOSED.
// Returns (nil, nil) if the row does not exist.
func (r *PositionRepository) UpdateNotes(ctx context.Context, id uint, notes *string) (*model.Position, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ?", id).
		Update("notes", notes)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "UpdateNotes",
			"id":   id,
		}).WithError(res.Error).Error("Failed to update position notes")

		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

// DeleteOpen hard-deletes an OPEN row. CLOSED rows are history and are never
// removed. Returns the number of deleted rows.
func (r *PositionRepository) DeleteOpen(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Delete(&model.Position{})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "DeleteOpen",
			"id":   id,
		}).WithError(res.Error).Error("Failed to delete open position")

		return 0, res.Error
	}

	return res.RowsAffected, nil
}
