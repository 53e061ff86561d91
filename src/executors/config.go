package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod  time.Duration `envconfig:"LOOP_PERIOD" default:"60s"`
	RunOnStart  bool          `envconfig:"LOOP_RUN_ON_START" default:"true"`
	SyncLockTTL time.Duration `envconfig:"SYNC_LOCK_TTL" default:"5m"`

	// When set, leases are shared through Redis instead of held in-process.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
