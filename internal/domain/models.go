// Package domain provides core domain models and types.
package domain

import "time"

// Trade represents a ledger entry for a buy or sell.
// Shares is signed: positive for buys, negative for sells.
// TotalPrice is the total cash moved for the trade, fees included,
// and is always positive regardless of side.
type Trade struct {
	TradeDate  time.Time `json:"trade_date"`
	CreatedAt  time.Time `json:"created_at"`
	Symbol     string    `json:"symbol"`
	ID         int64     `json:"id"`
	Shares     float64   `json:"shares"`
	TotalPrice float64   `json:"total_price"`
	Fee        float64   `json:"fee"`
}

// IsBuy reports whether the trade adds shares to the position.
func (t Trade) IsBuy() bool {
	return t.Shares > 0
}

// CostPerShare returns the effective per-share cost of the trade.
// Fees are embedded in TotalPrice, so they dilute into the basis.
// Undefined for zero-share trades; callers validate first.
func (t Trade) CostPerShare() float64 {
	return t.TotalPrice / t.Shares
}

// Dividend represents a cash dividend payment recorded in the ledger.
type Dividend struct {
	PayDate   time.Time `json:"pay_date"`
	CreatedAt time.Time `json:"created_at"`
	Symbol    string    `json:"symbol"`
	ID        int64     `json:"id"`
	Amount    float64   `json:"amount"` // Gross amount received
	Fee       float64   `json:"fee"`    // Withholding / handling fees
}

// Net returns the dividend amount after fees.
func (d Dividend) Net() float64 {
	return d.Amount - d.Fee
}

// PricePoint is a single daily close for a symbol.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Quote is the latest known price for a symbol with day-over-day change.
// A nil *Quote means the price is currently unavailable; that is a valid
// state (market data gap), not an error.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangeAmount  float64 `json:"change_amount"`
	ChangePercent float64 `json:"change_percent"`
}

// DailyStat is one point of the per-symbol daily performance series.
// Rows are keyed (symbol, date) and upserts are idempotent.
type DailyStat struct {
	Symbol     string  `json:"symbol"`
	Date       string  `json:"date"` // YYYY-MM-DD
	TotalCost  float64 `json:"total_cost"`
	TotalValue float64 `json:"total_value"`
}
