package costbasis

// Valuation prices a replayed position against a market quote and the
// symbol's accumulated net dividends.
type Valuation struct {
	TotalShares      float64 `json:"total_shares"`
	RemainingCost    float64 `json:"remaining_cost"`
	AvgCost          float64 `json:"avg_cost"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
	UnrealizedPct    float64 `json:"unrealized_pct"`
	RealizedProfit   float64 `json:"realized_profit"`
	DividendsNet     float64 `json:"dividends_net"`
	TotalRealized    float64 `json:"total_realized"`
	TotalProfit      float64 `json:"total_profit"`
	TotalPct         float64 `json:"total_pct"`
	PriceAvailable   bool    `json:"price_available"`
}

// Valuate prices state at the given per-share price. A nil price means
// the market data source had nothing for the symbol; market value and
// unrealized profit are zero and PriceAvailable is false so callers can
// render "not computable" instead of a fake zero gain.
//
// Percentages are relative to the remaining cost basis and guard the
// zero-basis case (fully closed position, or dividend-only history).
func Valuate(state PositionState, price *float64, dividendsNet float64) Valuation {
	v := Valuation{
		TotalShares:    state.TotalShares,
		RemainingCost:  state.RemainingCost(),
		RealizedProfit: state.RealizedProfit,
		DividendsNet:   dividendsNet,
	}

	if v.TotalShares > 0 && v.RemainingCost > 0 {
		v.AvgCost = v.RemainingCost / v.TotalShares
	}

	if price != nil {
		v.PriceAvailable = true
		// Unrealized profit only exists for an open long position. An
		// oversold position can hold leftover lot cost with a non-positive
		// share total; that cost is not an unrealized loss.
		if v.TotalShares > 0 {
			v.MarketValue = v.TotalShares * *price
			v.UnrealizedProfit = v.MarketValue - v.RemainingCost
		}
	}

	v.TotalRealized = v.RealizedProfit + v.DividendsNet
	v.TotalProfit = v.UnrealizedProfit + v.TotalRealized

	if v.RemainingCost > 0 {
		v.UnrealizedPct = v.UnrealizedProfit / v.RemainingCost * 100
		v.TotalPct = v.TotalProfit / v.RemainingCost * 100
	}

	return v
}
