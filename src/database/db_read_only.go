package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReadOnlyDB serves the listing endpoints. Point DATABASE_URL_READONLY at a
// replica (or a SELECT-only role) to keep rendering traffic off the writer;
// when unset it shares MainDB.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()

	if config.DatabaseURLReadOnly == "" {
		if MainDB == nil {
			return fmt.Errorf("read-only database falls back to MainDB, which is not initialized")
		}
		ReadOnlyDB = MainDB
		logrus.Info("[ReadOnlyDB] DATABASE_URL_READONLY not set, sharing MainDB")
		return nil
	}

	db, err := Open(config.DatabaseURLReadOnly, config.GormLogLevel, config.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("failed to open ReadOnlyDB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	// The replica must already carry the schema.
	if !db.Migrator().HasTable("positions") || !db.Migrator().HasTable("orders") {
		return fmt.Errorf("ReadOnlyDB is missing the positions/orders tables")
	}

	logrus.WithField("dialect", DialectFor(config.DatabaseURLReadOnly)).
		Info("[ReadOnlyDB] connected")

	ReadOnlyDB = db

	return nil
}
