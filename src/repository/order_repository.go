package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// OrderRepository is the order ledger, keyed by the exchange order id.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Debug("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderSearchOptions filters the listing endpoint.
type OrderSearchOptions struct {
	Statuses []string
	Symbol   string
	Limit    int
	Offset   int
}

// upsertColumns are the fields refreshed on every sighting. Notes, symbol,
// side and type are left alone.
var upsertColumns = []string{
	"price",
	"quantity",
	"filled_quantity",
	"trigger_price",
	"is_reduce_only",
	"status",
	"updated_at",
}

// FindByOrderID fetches an order by its exchange order id.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindByOrderID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch order by exchange ID")

		return nil, err
	}

	return &order, nil
}

// FindByID fetches a single order by its primary ID.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &order, nil
}

// FindLatestWithNotes returns the most recently created order on symbol and raw
// side that carries non-empty notes, or (nil, nil).
func (r *OrderRepository) FindLatestWithNotes(ctx context.Context, symbol, side string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("symbol = ? AND side = ? AND notes IS NOT NULL AND notes <> ''", symbol, side).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":   "OrderRepository",
			"op":     "FindLatestWithNotes",
			"symbol": symbol,
			"side":   side,
		}).WithError(err).Error("Failed to fetch latest noted order")

		return nil, err
	}

	return &order, nil
}

// ListUnresolved returns every order that has not reached a terminal status.
func (r *OrderRepository) ListUnresolved(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order

	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", model.TerminalOrderStatuses).
		Order("id ASC").
		Find(&orders).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "ListUnresolved",
		}).WithError(err).Error("Failed to list unresolved orders")

		return nil, err
	}

	return orders, nil
}

// Search lists orders for rendering, newest first.
func (r *OrderRepository) Search(ctx context.Context, opts OrderSearchOptions) ([]model.Order, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if len(opts.Statuses) > 0 {
		query = query.Where("status IN ?", opts.Statuses)
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

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search orders")

		return nil, err
	}

	return orders, nil
}

// Upsert inserts the order or refreshes its mutable fields in one statement,
// keyed by order_id. Any non-terminal row is refreshed; rows already in a
// terminal status are left as they are, so an order is never revived.
// Reports whether a row was written.
func (r *OrderRepository) Upsert(ctx context.Context, order *model.Order) (bool, error) {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Not(clause.IN{
					Column: clause.Column{Table: model.Order{}.TableName(), Name: "status"},
					Values: terminalStatusValues(),
				}),
			}},
		}).
		Create(order)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "Upsert",
			"order_id": order.OrderID,
			"symbol":   order.Symbol,
		}).WithError(res.Error).Error("Failed to upsert order")

		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateTerminal writes the terminal status and final filled quantity of an
// order that is not yet terminal locally. Returns false if the row had already
// reached a terminal status.
func (r *OrderRepository) UpdateTerminal(
	ctx context.Context,
	orderID string,
	status string,
	filledQuantity float64,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ? AND status NOT IN ?", orderID, model.TerminalOrderStatuses).
		Updates(map[string]interface{}{
			"status":          status,
			"filled_quantity": filledQuantity,
			"updated_at":      time.Now().UTC(),
		})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "UpdateTerminal",
			"order_id": orderID,
			"status":   status,
		}).WithError(res.Error).Error("Failed to write terminal order status")

		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateNotes sets the user-authored notes of an order.
// Returns (nil, nil) if the row does not exist.
func (r *OrderRepository) UpdateNotes(ctx context.Context, id uint, notes *string) (*model.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("notes", notes)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "UpdateNotes",
			"id":   id,
		}).WithError(res.Error).Error("Failed to update order notes")

		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	return r.FindByID(ctx, id)
}

func terminalStatusValues() []interface{} {
	values := make([]interface{}, len(model.TerminalOrderStatuses))
	for i, s := range model.TerminalOrderStatuses {
		values[i] = s
	}
	return values
}
