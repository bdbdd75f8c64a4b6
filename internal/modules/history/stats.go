package history

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yclin/stockfolio/internal/utils"
)

// SeriesSummary describes a symbol's stored daily series in aggregate.
// Returns are day-over-day changes of total value; volatility is their
// sample standard deviation.
type SeriesSummary struct {
	Symbol          string  `json:"symbol"`
	Count           int     `json:"count"`
	FirstDate       string  `json:"first_date"`
	LastDate        string  `json:"last_date"`
	LatestValue     float64 `json:"latest_value"`
	LatestCost      float64 `json:"latest_cost"`
	MinValue        float64 `json:"min_value"`
	MaxValue        float64 `json:"max_value"`
	MeanDailyReturn float64 `json:"mean_daily_return"`
	Volatility      float64 `json:"volatility"`
}

// Summarize computes summary statistics over a symbol's stored series.
// Returns nil when the symbol has no stats.
func (s *Service) Summarize(symbol string) (*SeriesSummary, error) {
	symbol = utils.NormalizeSymbol(symbol)
	series, err := s.stats.GetBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load series for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, nil
	}

	values := make([]float64, len(series))
	for i, row := range series {
		values[i] = row.TotalValue
	}

	summary := &SeriesSummary{
		Symbol:      symbol,
		Count:       len(series),
		FirstDate:   series[0].Date,
		LastDate:    series[len(series)-1].Date,
		LatestValue: series[len(series)-1].TotalValue,
		LatestCost:  series[len(series)-1].TotalCost,
		MinValue:    floats.Min(values),
		MaxValue:    floats.Max(values),
	}

	if len(values) >= 2 {
		returns := make([]float64, 0, len(values)-1)
		for i := 1; i < len(values); i++ {
			if values[i-1] != 0 {
				returns = append(returns, (values[i]-values[i-1])/values[i-1])
			}
		}
		if len(returns) > 0 {
			summary.MeanDailyReturn = stat.Mean(returns, nil)
		}
		if len(returns) >= 2 {
			summary.Volatility = stat.StdDev(returns, nil)
		}
	}

	return summary, nil
}
