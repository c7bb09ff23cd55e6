package ledger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	IntradayDailyTotal float64 `envconfig:"LEDGER_INTRADAY_DAILY_TOTAL" default:"10000"`
	SwingDailyTotal    float64 `envconfig:"LEDGER_SWING_DAILY_TOTAL" default:"50000"`
	IntradayTradeCap   float64 `envconfig:"LEDGER_INTRADAY_TRADE_CAP" default:"5000"`
	SwingTradeCap      float64 `envconfig:"LEDGER_SWING_TRADE_CAP" default:"10000"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
