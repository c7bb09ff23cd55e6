package ranking

import (
	"testing"
	"time"

	"papertrader/src/marketdata"
)

type fakeProvider struct {
	series map[string]marketdata.Series
}

func (p *fakeProvider) FetchOHLCV(symbol, interval string, limit int) (marketdata.Series, error) {
	series, ok := p.series[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return series, nil
}

func bars(n int, start float64, lastVolume float64) marketdata.Series {
	series := make(marketdata.Series, 0, n)
	day := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := start + float64(i)
		volume := 1000.0
		if i == n-1 {
			volume = lastVolume
		}
		series = append(series, marketdata.Candle{
			Timestamp: day.Add(time.Duration(i) * 5 * time.Minute),
			Open:      close - 0.5,
			High:      close + 0.2,
			Low:       close - 1.8,
			Close:     close,
			Volume:    volume,
		})
	}
	return series
}

func TestRankOrdersByScoreAndSkipsFailures(t *testing.T) {
	provider := &fakeProvider{series: map[string]marketdata.Series{
		"AAA": bars(30, 100, 1000), // no volume spike: lower score
		"BBB": bars(30, 100, 5000), // volume spike: higher score
		// CCC missing entirely
	}}
	ranker := NewRanker(marketdata.NewAnalyzer(provider))

	ranked := ranker.Rank([]string{"AAA", "BBB", "CCC"}, "5m")
	if len(ranked) != 2 {
		t.Fatalf("expected the failed symbol skipped, got %d entries", len(ranked))
	}
	if ranked[0].Symbol != "BBB" || ranked[1].Symbol != "AAA" {
		t.Fatalf("unexpected order: %s, %s", ranked[0].Symbol, ranked[1].Symbol)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("scores not descending: %.1f then %.1f", ranked[0].Score, ranked[1].Score)
	}
	if ranked[0].Snapshot == nil {
		t.Fatal("expected the snapshot carried with the rank")
	}
}

func TestRankEmptyUniverse(t *testing.T) {
	ranker := NewRanker(marketdata.NewAnalyzer(&fakeProvider{}))
	if got := ranker.Rank(nil, "5m"); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(got))
	}
}
