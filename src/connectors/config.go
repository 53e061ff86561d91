package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BybitAPIKey     string        `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret  string        `envconfig:"BYBIT_API_SECRET"`
	BybitBaseURL    string        `envconfig:"BYBIT_BASE_URL" default:"https://api.bybit.com"`
	BybitRecvWindow string        `envconfig:"BYBIT_RECV_WINDOW" default:"5000"`
	BybitCategory   string        `envconfig:"BYBIT_CATEGORY" default:"linear"`
	BybitSettleCoin string        `envconfig:"BYBIT_SETTLE_COIN" default:"USDT"`
	RemoteTimeout   time.Duration `envconfig:"REMOTE_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
