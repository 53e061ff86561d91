// Package dbtest opens throwaway sqlite databases carrying the journal schema.
package dbtest

import (
	"fmt"
	"testing"

	"tradejournal/src/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New returns an in-memory sqlite database, migrated, private to the calling test.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(dsn, 1, 0)
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate in memory db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
