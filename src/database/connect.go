package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectFor returns which driver serves the given database URL.
func DialectFor(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to PostgreSQL or sqlite depending on the URL and applies pool
// settings. sqlite gets a single connection because it serialises writers anyway
// and the two reconcilers write concurrently.
func Open(url string, gormLogLevel int, maxOpenConns int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch DialectFor(url) {
	case DialectPostgres:
		dialector = postgres.Open(url)
	default:
		dialector = sqlite.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(gormLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", DialectFor(url), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}

	if DialectFor(url) == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if maxOpenConns <= 0 {
			maxOpenConns = 20
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxOpenConns / 2)
	}
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}
