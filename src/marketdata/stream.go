package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

// miniTicker is the subset of the exchange stream payload we keep.
type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// QuoteStream keeps an in-memory last-price cache fed by the exchange
// websocket. It is optional: callers fall back to the latest candle
// close when the cache has no entry for a symbol. The exchange speaks
// pair symbols ("BTCUSDT"); the cache is keyed by base symbol ("BTC")
// so lookups match the configured universe.
type QuoteStream struct {
	url     string
	quote   string
	symbols []string
	log     *logger.Entry

	mu     sync.RWMutex
	prices map[string]float64
	seen   map[string]time.Time
}

func NewQuoteStream(url string, quoteCurrency string, symbols []string) *QuoteStream {
	return &QuoteStream{
		url:     url,
		quote:   strings.ToUpper(quoteCurrency),
		symbols: symbols,
		log:     logger.WithField("component", "QuoteStream"),
		prices:  make(map[string]float64),
		seen:    make(map[string]time.Time),
	}
}

// LastPrice returns the most recent streamed price for symbol, if any.
func (s *QuoteStream) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[strings.ToUpper(symbol)]
	return price, ok
}

func (s *QuoteStream) update(streamSymbol string, price float64) {
	base := strings.TrimSuffix(strings.ToUpper(streamSymbol), s.quote)
	if base == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[base] = price
	s.seen[base] = time.Now()
}

// Run dials the stream and consumes ticker frames until ctx is done,
// redialing with a flat backoff after any read or dial failure.
func (s *QuoteStream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.log.Info("quote stream stopping")
			return
		default:
		}

		if err := s.consume(ctx); err != nil {
			s.log.WithError(err).Warn("quote stream disconnected, retrying")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *QuoteStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial failed: %w", err)
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return err
	}
	s.log.WithField("symbols", len(s.symbols)).Info("quote stream connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read failed: %w", err)
		}

		var tick miniTicker
		if err := json.Unmarshal(msg, &tick); err != nil || tick.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(tick.Close, 64)
		if err != nil || price <= 0 {
			continue
		}
		s.update(tick.Symbol, price)
	}
}

func (s *QuoteStream) subscribe(conn *websocket.Conn) error {
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": s.streamNames(),
		"id":     1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("ws subscribe failed: %w", err)
	}
	return nil
}

// streamNames composes the exchange stream identifiers: base symbol
// plus quote currency, lower-cased ("BTC"+"USDT" -> "btcusdt@miniTicker").
func (s *QuoteStream) streamNames() []string {
	params := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		pair := strings.ToLower(strings.TrimSpace(symbol) + s.quote)
		params = append(params, pair+"@miniTicker")
	}
	return params
}
