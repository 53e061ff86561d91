package database_test

import (
	"testing"

	"tradejournal/src/database"
	"tradejournal/src/database/dbtest"
	"tradejournal/src/database/migrations"
	"tradejournal/src/model"

	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"postgres://u:p@localhost/journal?sslmode=disable", database.DialectPostgres},
		{"postgresql://u:p@localhost/journal", database.DialectPostgres},
		{"  POSTGRES://u:p@db/journal", database.DialectPostgres},
		{"journal.db", database.DialectSQLite},
		{"file::memory:?cache=shared", database.DialectSQLite},
		{"", database.DialectSQLite},
	}

	for _, tt := range tests {
		if got := database.DialectFor(tt.url); got != tt.expected {
			t.Fatalf("expected %q -> %s, got %s", tt.url, tt.expected, got)
		}
	}
}

func TestMigrateCreatesSchemaAndIsRepeatable(t *testing.T) {
	db := dbtest.New(t)

	for _, table := range []string{"positions", "orders", "sync_runs", "exceptions", "data_migrations"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	// a second pass must not re-apply data migrations
	require.NoError(t, database.Migrate(db))

	var applied int64
	require.NoError(t, db.Model(&migrations.DataMigration{}).Count(&applied).Error)
	require.Equal(t, int64(len(migrations.Registered)), applied)
}

func TestOpenPositionUniqueIndex(t *testing.T) {
	db := dbtest.New(t)

	first := model.Position{Symbol: "ADAUSDT", Side: model.PositionSideLong, Status: model.PositionStatusOpen}
	require.NoError(t, db.Create(&first).Error)

	dup := model.Position{Symbol: "ADAUSDT", Side: model.PositionSideLong, Status: model.PositionStatusOpen}
	require.Error(t, db.Create(&dup).Error)

	// CLOSED rows and the opposite side are unaffected
	closed := model.Position{Symbol: "ADAUSDT", Side: model.PositionSideLong, Status: model.PositionStatusClosed}
	require.NoError(t, db.Create(&closed).Error)
	short := model.Position{Symbol: "ADAUSDT", Side: model.PositionSideShort, Status: model.PositionStatusOpen}
	require.NoError(t, db.Create(&short).Error)
}
