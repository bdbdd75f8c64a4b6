// Package costbasis implements FIFO lot matching over a trade history.
//
// The engine is pure computation: it takes an ordered trade slice and
// derives open lots and realized profit. Nothing here touches storage
// or prices; those live at the module boundaries.
package costbasis

import (
	"errors"
	"fmt"
	"math"

	"github.com/yclin/stockfolio/internal/domain"
)

// ErrInvalidTrade marks a trade the engine cannot interpret:
// zero shares, or a non-finite share count or total price.
// Callers use errors.Is to isolate the failing symbol.
var ErrInvalidTrade = errors.New("invalid trade")

// Lot is an open buy parcel awaiting future sells.
type Lot struct {
	RemainingShares float64 `json:"remaining_shares"`
	CostPerShare    float64 `json:"cost_per_share"`
}

// PositionState is the outcome of replaying a symbol's trade history.
// OpenLots is ordered oldest first. TotalShares is the signed sum of
// all trade shares; it can go negative when sells exceed recorded buys.
type PositionState struct {
	OpenLots       []Lot   `json:"open_lots"`
	TotalShares    float64 `json:"total_shares"`
	RealizedProfit float64 `json:"realized_profit"`
}

// Replay runs the FIFO matcher over trades, which must already be in
// chronological order (date ascending, insertion order breaking ties).
//
// Buys append a lot priced at TotalPrice/Shares, fees embedded. Sells
// consume the oldest lots first; each matched slice realizes
// (sell per-share - lot cost per-share) * matched quantity. A sell
// larger than the open lots consumes everything that is there and the
// excess quantity realizes nothing, while TotalShares still drops by
// the full amount. That mirrors how a ledger with missing buy rows
// behaves and is deliberately left visible rather than papered over.
func Replay(trades []domain.Trade) (PositionState, error) {
	state := PositionState{OpenLots: []Lot{}}

	for _, t := range trades {
		if err := validate(t); err != nil {
			return PositionState{}, err
		}

		state.TotalShares += t.Shares

		if t.IsBuy() {
			state.OpenLots = append(state.OpenLots, Lot{
				RemainingShares: t.Shares,
				CostPerShare:    t.CostPerShare(),
			})
			continue
		}

		sellShares := -t.Shares
		sellPerShare := t.TotalPrice / sellShares

		for sellShares > 0 && len(state.OpenLots) > 0 {
			lot := &state.OpenLots[0]

			matched := sellShares
			if lot.RemainingShares < matched {
				matched = lot.RemainingShares
			}

			state.RealizedProfit += (sellPerShare - lot.CostPerShare) * matched
			lot.RemainingShares -= matched
			sellShares -= matched

			if lot.RemainingShares <= 0 {
				state.OpenLots = state.OpenLots[1:]
			}
		}
		// Any sellShares left here is an oversell; it realizes nothing.
	}

	return state, nil
}

// RemainingCost returns the cost basis still tied up in open lots.
func (s PositionState) RemainingCost() float64 {
	var cost float64
	for _, lot := range s.OpenLots {
		cost += lot.CostPerShare * lot.RemainingShares
	}
	return cost
}

// OpenShares returns the share count held in open lots. It differs from
// TotalShares only after an oversell, when TotalShares has gone negative.
func (s PositionState) OpenShares() float64 {
	var shares float64
	for _, lot := range s.OpenLots {
		shares += lot.RemainingShares
	}
	return shares
}

func validate(t domain.Trade) error {
	if t.Shares == 0 {
		return fmt.Errorf("%w: %s trade %d has zero shares", ErrInvalidTrade, t.Symbol, t.ID)
	}
	if math.IsNaN(t.Shares) || math.IsInf(t.Shares, 0) {
		return fmt.Errorf("%w: %s trade %d has non-finite shares", ErrInvalidTrade, t.Symbol, t.ID)
	}
	if math.IsNaN(t.TotalPrice) || math.IsInf(t.TotalPrice, 0) {
		return fmt.Errorf("%w: %s trade %d has non-finite total price", ErrInvalidTrade, t.Symbol, t.ID)
	}
	return nil
}
