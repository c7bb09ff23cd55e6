package engine

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols       string `envconfig:"ENGINE_SYMBOLS" default:"BTC,ETH,SOL,BNB,XRP"`
	Interval      string `envconfig:"ENGINE_INTERVAL" default:"5m"`
	WatchlistSize int    `envconfig:"ENGINE_WATCHLIST_SIZE" default:"5"`
	Broker        string `envconfig:"ENGINE_BROKER" default:"paper"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Universe returns the configured symbol list, trimmed and upper-cased.
func (c Config) Universe() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}
