package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	QuoteCurrency string `envconfig:"MARKET_QUOTE_CURRENCY" default:"USDT"`
	StreamURL     string `envconfig:"MARKET_STREAM_URL" default:"wss://stream.binance.com:9443/ws"`
	StreamEnabled bool   `envconfig:"MARKET_STREAM_ENABLED" default:"false"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
