// Package history maintains the per-symbol daily performance series:
// for each market day it projects the ledger onto that day's close and
// stores total cost and total value.
package history

import (
	"fmt"

	"github.com/yclin/stockfolio/internal/costbasis"
	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/utils"
)

// Project computes one DailyStat per price point.
//
// Each point is derived from scratch: the trades and dividends dated on
// or before the point are replayed in full, then valued at that day's
// close. There is no carry-over state between points, so re-running a
// date range always lands on the same rows and the upsert stays
// idempotent. Trades must be in replay order (date asc, id asc).
//
// TotalValue folds realized profit and net dividends back in, so the
// series tracks "what the position earned" rather than raw market value:
// selling at a profit doesn't make the line fall off a cliff.
func Project(symbol string, trades []domain.Trade, dividends []domain.Dividend, points []domain.PricePoint) ([]domain.DailyStat, error) {
	stats := make([]domain.DailyStat, 0, len(points))

	for _, point := range points {
		cutoff := utils.Midnight(point.Date)

		var asOfTrades []domain.Trade
		for _, t := range trades {
			if !t.TradeDate.After(cutoff) {
				asOfTrades = append(asOfTrades, t)
			}
		}

		var dividendsNet float64
		for _, d := range dividends {
			if !d.PayDate.After(cutoff) {
				dividendsNet += d.Net()
			}
		}

		state, err := costbasis.Replay(asOfTrades)
		if err != nil {
			return nil, fmt.Errorf("failed to project %s at %s: %w", symbol, point.Date.Format(utils.DateLayout), err)
		}

		closePrice := point.Close
		valuation := costbasis.Valuate(state, &closePrice, dividendsNet)

		stats = append(stats, domain.DailyStat{
			Symbol:     symbol,
			Date:       point.Date.Format(utils.DateLayout),
			TotalCost:  valuation.RemainingCost,
			TotalValue: valuation.MarketValue + valuation.RealizedProfit + valuation.DividendsNet,
		})
	}

	return stats, nil
}
