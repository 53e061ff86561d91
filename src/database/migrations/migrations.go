// package migrations
package migrations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DataMigration tracks executed data migrations (like Django).
// Table name is fixed to avoid collisions with other models.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

func ensureDataMigrationsTable(db *gorm.DB) error {
	return db.AutoMigrate(&DataMigration{})
}

// RunOnce runs fn only if migrationID was not executed before.
// It records the migration as executed only after fn succeeds.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	if db == nil {
		return nil
	}
	if migrationID == "" {
		return fmt.Errorf("migration id is empty")
	}
	if fn == nil {
		return fmt.Errorf("migration %q has nil fn", migrationID)
	}

	if err := ensureDataMigrationsTable(db); err != nil {
		return fmt.Errorf("ensure data migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var m DataMigration
		err := tx.First(&m, "id = ?", migrationID).Error
		if err == nil {
			// already applied
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}

		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}

		rec := DataMigration{
			ID:        migrationID,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}

		return nil
	})
}

// Migration is one run-once data migration.
type Migration struct {
	ID string
	Fn func(*gorm.DB) error
}

// Registered lists the data migrations in order. Append new ones at the
// bottom with a stable unique id.
var Registered = []Migration{
	{ID: "00001_open_position_unique_index", Fn: createOpenPositionUniqueIndex},
	{ID: "00002_backfill_closed_position_exit", Fn: backfillClosedPositionExit},
	{ID: "00003_normalize_position_sides", Fn: normalizePositionSides},
}

// Run executes all data migrations that go beyond schema auto-migrations.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	for _, m := range Registered {
		if err := RunOnce(db, m.ID, m.Fn); err != nil {
			return err
		}
	}

	return nil
}

// OpenPositionIndex is the partial unique index that keeps a single OPEN row per (symbol, side).
const OpenPositionIndex = "ux_positions_open_symbol_side"

// createOpenPositionUniqueIndex adds the partial unique index. Both postgres
// and sqlite support the WHERE clause.
func createOpenPositionUniqueIndex(db *gorm.DB) error {
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS " + OpenPositionIndex +
			" ON positions (symbol, side) WHERE status = 'OPEN'",
	).Error
}

// backfillClosedPositionExit repairs rows that were closed in place by older
// versions of the journal: exit price mirrors the last mark price and the
// unrealized fields are zeroed.
func backfillClosedPositionExit(db *gorm.DB) error {
	if err := db.Exec(
		"UPDATE positions SET exit_price = mark_price WHERE status = 'CLOSED' AND exit_price IS NULL",
	).Error; err != nil {
		return fmt.Errorf("backfill exit_price: %w", err)
	}

	return db.Exec(
		"UPDATE positions SET unrealized_pnl = 0, unrealized_roi = 0 WHERE status = 'CLOSED' AND (unrealized_pnl <> 0 OR unrealized_roi <> 0)",
	).Error
}

// normalizePositionSides rewrites raw venue sides (Buy/Sell) stored by older
// versions into LONG/SHORT. An OPEN legacy row whose normalised key is already
// taken is left alone; the next position pass removes it as stale.
func normalizePositionSides(db *gorm.DB) error {
	for legacy, side := range map[string]string{"Buy": "LONG", "Sell": "SHORT"} {
		if err := db.Exec(
			`UPDATE positions SET side = ? WHERE side = ? AND NOT (status = 'OPEN' AND EXISTS (
				SELECT 1 FROM positions p2 WHERE p2.symbol = positions.symbol AND p2.side = ? AND p2.status = 'OPEN'))`,
			side, legacy, side,
		).Error; err != nil {
			return fmt.Errorf("normalize %s sides: %w", legacy, err)
		}
	}
	return nil
}
