package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod  time.Duration `envconfig:"LOOP_PERIOD" default:"5m"`
	SwingPeriod time.Duration `envconfig:"SWING_PERIOD" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
