package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestQuoteStreamCacheKeyedByBaseSymbol(t *testing.T) {
	s := NewQuoteStream("ws://unused", "USDT", []string{"BTC"})

	s.update("BTCUSDT", 50000)

	price, ok := s.LastPrice("BTC")
	if !ok {
		t.Fatal("expected the streamed pair price reachable by base symbol")
	}
	if price != 50000 {
		t.Fatalf("unexpected price: %.2f", price)
	}
	if _, ok := s.LastPrice("ETH"); ok {
		t.Fatal("expected no price for an unseen symbol")
	}
}

func TestQuoteStreamSubscribesToPairStreams(t *testing.T) {
	s := NewQuoteStream("ws://unused", "USDT", []string{"BTC", " eth "})

	names := s.streamNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 stream names, got %d", len(names))
	}
	if names[0] != "btcusdt@miniTicker" || names[1] != "ethusdt@miniTicker" {
		t.Fatalf("unexpected stream names: %v", names)
	}
}

func TestQuoteStreamConsumesTickerFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// Drain the subscribe request, then emit one ticker frame and
		// hang up so the client's read loop terminates.
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("failed to read subscribe: %v", err)
			return
		}
		frame := []byte(`{"s":"BTCUSDT","c":"50123.45"}`)
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Errorf("failed to write frame: %v", err)
		}
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	s := NewQuoteStream(url, "USDT", []string{"BTC"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// consume returns once the server hangs up; the frame must already
	// be cached by then.
	_ = s.consume(ctx)

	price, ok := s.LastPrice("BTC")
	if !ok {
		t.Fatal("expected the streamed price cached under the base symbol")
	}
	if price != 50123.45 {
		t.Fatalf("unexpected price: %.2f", price)
	}
}
