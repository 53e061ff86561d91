package executor

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ServeMetricsPort exposes /metrics from the loop process when set.
	ServeMetricsPort string `envconfig:"EXECUTOR_METRICS_PORT"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
