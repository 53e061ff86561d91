package reconciler

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Realized-close events before this instant are never imported.
	HistoryStartDate   time.Time `envconfig:"HISTORY_START_DATE" default:"2026-01-01T12:00:00Z"`
	ClosedPnLLimit     int       `envconfig:"CLOSED_PNL_LIMIT" default:"50"`
	PartialCloseMarker string    `envconfig:"PARTIAL_CLOSE_MARKER" default:"Partially Closed"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
