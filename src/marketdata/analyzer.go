package marketdata

import (
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
	logger "github.com/sirupsen/logrus"
)

const (
	TrendUp       = "UPTREND"
	TrendDown     = "DOWNTREND"
	TrendSideways = "SIDEWAYS"
)

// Snapshot is the read-only indicator view of one symbol's latest bar.
// Produced fresh each tick and never mutated afterwards.
type Snapshot struct {
	Symbol     string
	CandleTime time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	SMA20      float64
	EMA20      float64
	RSI14      float64
	ATR14      float64
	VolAvg20   float64
	EMASlope   float64
	Score      float64
	BuyOK      bool
	Trend      string
	Reasons    []string
	Features   map[string]any
	Summary    string
}

// SwingFrame carries the daily-bar indicator set the swing rules evaluate.
type SwingFrame struct {
	Symbol     string
	CandleTime time.Time
	Bars       int
	Close      float64
	High       float64
	Low        float64
	EMA20      float64
	SMA50      float64
	PrevSMA50  float64
	RSI14      float64
	ATR14      float64
	MACD       float64
	MACDSignal float64
	// High20 is the prior 20-day rolling high, shifted one bar so the
	// current bar never counts toward its own breakout level.
	High20 float64
}

// Analyzer turns raw candle series into indicator snapshots. Per-symbol
// failures surface as errors so a batch caller can skip and continue.
type Analyzer struct {
	provider Provider
	log      *logger.Entry
}

func NewAnalyzer(provider Provider) *Analyzer {
	return &Analyzer{
		provider: provider,
		log:      logger.WithField("component", "Analyzer"),
	}
}

func clean(v float64, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func last(series []float64, fallback float64) float64 {
	if len(series) == 0 {
		return fallback
	}
	return clean(series[len(series)-1], fallback)
}

func prior(series []float64, fallback float64) float64 {
	if len(series) < 2 {
		return fallback
	}
	return clean(series[len(series)-2], fallback)
}

// Analyze fetches recent intraday candles for symbol and computes the
// tick-based momentum snapshot used for ranking, entries and exits.
func (a *Analyzer) Analyze(symbol string, interval string) (*Snapshot, error) {
	series, err := a.provider.FetchOHLCV(symbol, interval, 200)
	if err != nil {
		return nil, err
	}
	if len(series) < 21 {
		return nil, fmt.Errorf("%w: %s needs at least 21 candles, got %d", ErrNoData, symbol, len(series))
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	vols := series.Volumes()

	sma20 := talib.Sma(closes, 20)
	ema20 := talib.Ema(closes, 20)
	rsi14 := talib.Rsi(closes, 14)
	atr14 := talib.Atr(highs, lows, closes, 14)
	volAvg20 := talib.Sma(vols, 20)

	latest := series.Latest()
	close := clean(latest.Close, 0)
	ema := last(ema20, close)
	emaSlope := ema - prior(ema20, ema)
	rsi := last(rsi14, 50)
	volAvg := last(volAvg20, 0)

	volumeSpike := latest.Volume > 1.5*math.Max(volAvg, 1)
	nearDayHigh := close >= latest.Low+0.8*(latest.High-latest.Low)

	score := 0.0
	reasons := make([]string, 0, 5)
	if close > ema {
		score += 25
		reasons = append(reasons, "close_above_ema20")
	}
	if emaSlope > 0 {
		score += 20
		reasons = append(reasons, "ema20_rising")
	}
	if volumeSpike {
		score += 25
		reasons = append(reasons, "volume_spike")
	}
	if rsi >= 55 && rsi <= 70 {
		score += 20
		reasons = append(reasons, "rsi_in_momentum_band")
	}
	if nearDayHigh {
		score += 10
		reasons = append(reasons, "close_near_day_high")
	}
	score = math.Min(100, score)

	buyOK := close > ema && emaSlope > 0 && volumeSpike && rsi > 55

	sma := last(sma20, close)
	emaUp := emaSlope > 0
	trend := TrendSideways
	switch {
	case close > sma && emaUp && rsi > 55:
		trend = TrendUp
	case close < sma && !emaUp && rsi < 45:
		trend = TrendDown
	}

	snapshot := &Snapshot{
		Symbol:     symbol,
		CandleTime: latest.Timestamp,
		Open:       latest.Open,
		High:       latest.High,
		Low:        latest.Low,
		Close:      close,
		Volume:     latest.Volume,
		SMA20:      sma,
		EMA20:      ema,
		RSI14:      rsi,
		ATR14:      last(atr14, 0),
		VolAvg20:   volAvg,
		EMASlope:   emaSlope,
		Score:      score,
		BuyOK:      buyOK,
		Trend:      trend,
		Reasons:    reasons,
		Summary: fmt.Sprintf(
			"%s: score=%.1f, close=%.2f, ema20=%.2f, ema_slope=%.4f, rsi14=%.2f, volume_ratio=%.2f.",
			symbol, score, close, ema, emaSlope, rsi, latest.Volume/math.Max(volAvg, 1),
		),
	}
	snapshot.Features = map[string]any{
		"close":        round4(close),
		"high":         round4(latest.High),
		"low":          round4(latest.Low),
		"volume":       round4(latest.Volume),
		"ema20":        round4(ema),
		"ema_slope":    emaSlope,
		"rsi14":        round4(rsi),
		"vol_avg20":    round4(volAvg),
		"volume_spike": volumeSpike,
		"near_day_high": nearDayHigh,
		"score":        score,
	}

	return snapshot, nil
}

// AnalyzeSwing fetches daily candles and computes the swing indicator frame.
func (a *Analyzer) AnalyzeSwing(symbol string) (*SwingFrame, error) {
	series, err := a.provider.FetchOHLCV(symbol, "1d", 200)
	if err != nil {
		return nil, err
	}
	return NewSwingFrame(symbol, series), nil
}

// NewSwingFrame computes the daily indicator set over an ordered series.
func NewSwingFrame(symbol string, series Series) *SwingFrame {
	frame := &SwingFrame{Symbol: symbol, Bars: len(series)}
	if len(series) == 0 {
		return frame
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	latest := series.Latest()

	frame.CandleTime = latest.Timestamp
	frame.Close = clean(latest.Close, 0)
	frame.High = latest.High
	frame.Low = latest.Low

	if len(series) >= 21 {
		frame.EMA20 = last(talib.Ema(closes, 20), frame.Close)
		frame.RSI14 = last(talib.Rsi(closes, 14), 50)
		frame.ATR14 = last(talib.Atr(highs, lows, closes, 14), 0)
		// Shift the rolling high by one bar: read yesterday's window.
		frame.High20 = prior(talib.Max(highs, 20), 0)
	}
	if len(series) >= 51 {
		sma50 := talib.Sma(closes, 50)
		frame.SMA50 = last(sma50, frame.Close)
		frame.PrevSMA50 = prior(sma50, frame.SMA50)
	}
	if len(series) >= 35 {
		macd, signal, _ := talib.Macd(closes, 12, 26, 9)
		frame.MACD = last(macd, 0)
		frame.MACDSignal = last(signal, 0)
	}

	return frame
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
