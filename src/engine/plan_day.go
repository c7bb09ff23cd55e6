package engine

import (
	"context"
	"time"

	"papertrader/src/calendar"
	"papertrader/src/model"
)

// PlanDay ranks the configured universe and pins the top-N symbols as
// the day's watchlist. An existing watchlist is reused unless
// forceReplan is set. Every ranked symbol gets an audit row, not just
// the winners.
func (e *Engine) PlanDay(ctx context.Context, date time.Time, forceReplan bool) ([]model.WatchlistDaily, error) {
	if date.IsZero() {
		date = calendar.Today()
	}
	date = calendar.Midnight(date)

	if !calendar.IsTradingDay(date) {
		e.log.WithField("date", date.Format("2006-01-02")).
			Info("Non-trading day, plan skipped")
		return nil, nil
	}

	existing, err := e.watchlist.FindForDate(ctx, date, model.ModeIntraday)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !forceReplan {
		e.log.WithFields(map[string]interface{}{
			"date":    date.Format("2006-01-02"),
			"entries": len(existing),
		}).Info("Watchlist already planned, reusing")
		return existing, nil
	}

	ranked := e.ranker.Rank(e.config.Universe(), e.config.Interval)

	for i, r := range ranked {
		audit := &model.RankAudit{
			Date:    date,
			Mode:    model.ModeIntraday,
			Symbol:  r.Symbol,
			Rank:    i + 1,
			Score:   r.Score,
			Metric:  "momentum_score",
			Details: r.Snapshot.Features,
		}
		if err := e.audits.Upsert(ctx, audit); err != nil {
			e.log.WithError(err).WithField("symbol", r.Symbol).
				Warn("Failed to record rank audit")
		}
	}

	topN := e.config.WatchlistSize
	if topN > len(ranked) {
		topN = len(ranked)
	}
	entries := make([]model.WatchlistDaily, 0, topN)
	for i := 0; i < topN; i++ {
		entries = append(entries, model.WatchlistDaily{
			Date:   date,
			Symbol: ranked[i].Symbol,
			Mode:   model.ModeIntraday,
			Reason: "ranked",
			Rank:   i + 1,
			Score:  ranked[i].Score,
		})
	}

	if err := e.watchlist.ReplaceForDate(ctx, date, model.ModeIntraday, entries); err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"ranked":  len(ranked),
		"planned": len(entries),
	}).Info("Day planned")

	return entries, nil
}
