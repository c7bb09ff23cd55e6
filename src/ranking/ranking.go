package ranking

import (
	"sort"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/marketdata"
)

// Ranked pairs a symbol with its momentum score and the snapshot that
// produced it.
type Ranked struct {
	Symbol   string
	Score    float64
	Snapshot *marketdata.Snapshot
}

// Ranker orders a symbol universe by momentum score. A symbol whose
// data fetch fails is skipped; the batch never aborts.
type Ranker struct {
	analyzer *marketdata.Analyzer
	log      *logger.Entry
}

func NewRanker(analyzer *marketdata.Analyzer) *Ranker {
	return &Ranker{
		analyzer: analyzer,
		log:      logger.WithField("component", "Ranker"),
	}
}

// Rank analyzes every symbol at the given interval and returns them
// ordered by descending score. Equal scores keep universe order, which
// makes the ranking deterministic for a fixed input list.
func (r *Ranker) Rank(symbols []string, interval string) []Ranked {
	ranked := make([]Ranked, 0, len(symbols))
	for _, symbol := range symbols {
		snap, err := r.analyzer.Analyze(symbol, interval)
		if err != nil {
			r.log.WithError(err).WithField("symbol", symbol).
				Warn("Skipping symbol in ranking: analysis failed")
			continue
		}
		ranked = append(ranked, Ranked{Symbol: symbol, Score: snap.Score, Snapshot: snap})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
