package marketdata

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	logger "github.com/sirupsen/logrus"
)

// BinanceClient implements Provider on top of the Binance spot kline API.
type BinanceClient struct {
	exchange goex.API
	quote    string
	log      *logger.Entry
}

func NewBinanceClient() *BinanceClient {
	config := GetConfig()
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &BinanceClient{
		exchange: binance.NewWithConfig(apiConfig),
		quote:    config.QuoteCurrency,
		log:      logger.WithField("component", "BinanceClient"),
	}
}

// WithExchange overrides the underlying exchange API. Useful for tests.
func (c *BinanceClient) WithExchange(api goex.API) *BinanceClient {
	return &BinanceClient{exchange: api, quote: c.quote, log: c.log}
}

func (c *BinanceClient) FetchOHLCV(symbol string, interval string, limit int) (Series, error) {
	if limit <= 0 {
		limit = 200
	}

	period, err := klinePeriod(interval)
	if err != nil {
		return nil, err
	}

	pair := goex.NewCurrencyPair(
		goex.Currency{Symbol: strings.ToUpper(strings.TrimSpace(symbol))},
		goex.Currency{Symbol: c.quote},
	)

	c.log.WithFields(logger.Fields{
		"symbol":   symbol,
		"interval": interval,
		"limit":    limit,
	}).Debug("Fetching klines")

	klines, err := c.exchange.GetKlineRecords(pair, period, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	series := make(Series, 0, len(klines))
	for i := range klines {
		k := klines[i]
		if k.Open <= 0 || k.High <= 0 || k.Low <= 0 || k.Close <= 0 {
			continue
		}
		series = append(series, Candle{
			Timestamp: time.Unix(k.Timestamp, 0).UTC(),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Vol,
		})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	// Some exchanges hand back newest-first pages.
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	return series, nil
}

func klinePeriod(interval string) (goex.KlinePeriod, error) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1m":
		return goex.KLINE_PERIOD_1MIN, nil
	case "5m":
		return goex.KLINE_PERIOD_5MIN, nil
	case "15m":
		return goex.KLINE_PERIOD_15MIN, nil
	case "1h":
		return goex.KLINE_PERIOD_1H, nil
	case "1d":
		return goex.KLINE_PERIOD_1DAY, nil
	default:
		return 0, fmt.Errorf("unsupported kline interval %q", interval)
	}
}
