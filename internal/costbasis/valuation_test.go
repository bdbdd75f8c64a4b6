package costbasis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yclin/stockfolio/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func TestValuate_OpenPositionWithPrice(t *testing.T) {
	state, err := Replay([]domain.Trade{
		trade(1, 100, 1000), // 10/share
		trade(2, 50, 600),   // 12/share
	})
	require.NoError(t, err)

	v := Valuate(state, ptr(15), 0)

	assert.True(t, v.PriceAvailable)
	assert.InDelta(t, 1600, v.RemainingCost, 1e-9)
	assert.InDelta(t, 1600.0/150.0, v.AvgCost, 1e-9)
	assert.InDelta(t, 2250, v.MarketValue, 1e-9)
	assert.InDelta(t, 650, v.UnrealizedProfit, 1e-9)
	assert.InDelta(t, 650.0/1600.0*100, v.UnrealizedPct, 1e-9)
	assert.InDelta(t, 650, v.TotalProfit, 1e-9)
}

func TestValuate_MissingPriceIsNotAnError(t *testing.T) {
	state, err := Replay([]domain.Trade{trade(1, 100, 1000)})
	require.NoError(t, err)

	v := Valuate(state, nil, 0)

	assert.False(t, v.PriceAvailable)
	assert.Equal(t, float64(0), v.MarketValue)
	assert.Equal(t, float64(0), v.UnrealizedProfit)
	// Realized side is still reported; only market-dependent fields go dark.
	assert.InDelta(t, 1000, v.RemainingCost, 1e-9)
	assert.InDelta(t, 10, v.AvgCost, 1e-9)
}

func TestValuate_DividendsAddToRealized(t *testing.T) {
	state, err := Replay([]domain.Trade{
		trade(1, 100, 1000),
		trade(2, -100, 1100), // +100 realized
	})
	require.NoError(t, err)

	v := Valuate(state, nil, 35.5)

	assert.InDelta(t, 100, v.RealizedProfit, 1e-9)
	assert.InDelta(t, 35.5, v.DividendsNet, 1e-9)
	assert.InDelta(t, 135.5, v.TotalRealized, 1e-9)
	assert.InDelta(t, 135.5, v.TotalProfit, 1e-9)
}

func TestValuate_ClosedPositionPercentagesGuarded(t *testing.T) {
	state, err := Replay([]domain.Trade{
		trade(1, 100, 1000),
		trade(2, -100, 1200),
	})
	require.NoError(t, err)

	v := Valuate(state, ptr(13), 0)

	// No remaining basis: percentages are 0, never NaN or Inf.
	assert.Equal(t, float64(0), v.RemainingCost)
	assert.Equal(t, float64(0), v.UnrealizedPct)
	assert.Equal(t, float64(0), v.TotalPct)
	assert.Equal(t, float64(0), v.MarketValue)
	assert.InDelta(t, 200, v.TotalProfit, 1e-9)
}

func TestValuate_OversoldPositionHasNoMarketValue(t *testing.T) {
	state, err := Replay([]domain.Trade{
		trade(1, 100, 1000),
		trade(2, -150, 1800),
	})
	require.NoError(t, err)
	require.Equal(t, float64(-50), state.TotalShares)

	v := Valuate(state, ptr(12), 0)

	// Negative share counts never price into a market value.
	assert.Equal(t, float64(0), v.MarketValue)
	assert.InDelta(t, 200, v.RealizedProfit, 1e-9)
}

func TestValuate_OversellThenRebuyHasNoUnrealizedProfit(t *testing.T) {
	// The oversell empties the lot queue and drives the share total
	// negative; the rebuy leaves an open lot whose cost must not be
	// reported as an unrealized loss while the total stays non-positive.
	state, err := Replay([]domain.Trade{
		trade(1, -100, 1000),
		trade(2, 50, 600),
	})
	require.NoError(t, err)
	require.Equal(t, float64(-50), state.TotalShares)
	require.InDelta(t, 600, state.RemainingCost(), 1e-9)

	v := Valuate(state, ptr(13), 0)

	assert.True(t, v.PriceAvailable)
	assert.Equal(t, float64(0), v.MarketValue)
	assert.Equal(t, float64(0), v.UnrealizedProfit)
	assert.Equal(t, float64(0), v.TotalProfit)
	assert.Equal(t, float64(0), v.TotalPct)
}
