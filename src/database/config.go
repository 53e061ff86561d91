package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"debug"` // Expected to hold values like "debug", "info", "warn", "error"
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"` // Expected to hold values like "json" or "text"
	// DatabaseURL selects the datastore: postgres://... or postgresql://... uses
	// PostgreSQL, anything else is treated as a sqlite DSN.
	DatabaseURL         string `envconfig:"DATABASE_URL" default:"journal.db"`
	DatabaseURLReadOnly string `envconfig:"DATABASE_URL_READONLY"`
	GormLogLevel        int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
	MaxOpenConns        int    `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
