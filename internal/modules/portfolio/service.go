// Package portfolio derives position-level and portfolio-level profit
// figures from the ledger by replaying each symbol's trade history.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/costbasis"
	"github.com/yclin/stockfolio/internal/domain"
)

// TradeSource provides replay-ordered trades from the ledger.
type TradeSource interface {
	GetAllAscending() ([]domain.Trade, error)
	GetBySymbolAscending(symbol string) ([]domain.Trade, error)
}

// DividendSource provides dividend sums from the ledger.
type DividendSource interface {
	NetBySymbol(symbol string) (float64, error)
}

// QuoteProvider returns the latest price for a symbol. A nil quote with
// a nil error means the price is currently unavailable.
type QuoteProvider interface {
	GetQuote(symbol string) (*domain.Quote, error)
}

// Position is one symbol's fully valued state in the overview.
type Position struct {
	Symbol    string              `json:"symbol"`
	Quote     *domain.Quote       `json:"quote"`
	Valuation costbasis.Valuation `json:"valuation"`
	OpenLots  []costbasis.Lot     `json:"open_lots"`
}

// Overview is the whole-portfolio response.
type Overview struct {
	Positions             []Position `json:"positions"`
	GrandTotalMarketValue float64    `json:"grand_total_market_value"`
	SkippedSymbols        []string   `json:"skipped_symbols,omitempty"`
}

// Service aggregates per-symbol valuations into a portfolio overview.
type Service struct {
	trades    TradeSource
	dividends DividendSource
	quotes    QuoteProvider
	log       zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(trades TradeSource, dividends DividendSource, quotes QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		trades:    trades,
		dividends: dividends,
		quotes:    quotes,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// GetOverview replays every symbol and aggregates the results.
//
// Symbols appear in the order the portfolio first traded them. Fully
// closed symbols with nothing realized are dropped from the view.
// A symbol whose history the replay engine rejects is skipped and
// reported; one bad row never takes down the rest of the portfolio.
func (s *Service) GetOverview() (*Overview, error) {
	allTrades, err := s.trades.GetAllAscending()
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	// Group by symbol preserving first-seen order.
	bySymbol := make(map[string][]domain.Trade)
	var order []string
	for _, trade := range allTrades {
		if _, seen := bySymbol[trade.Symbol]; !seen {
			order = append(order, trade.Symbol)
		}
		bySymbol[trade.Symbol] = append(bySymbol[trade.Symbol], trade)
	}

	overview := &Overview{Positions: []Position{}}

	for _, symbol := range order {
		state, err := costbasis.Replay(bySymbol[symbol])
		if err != nil {
			if errors.Is(err, costbasis.ErrInvalidTrade) {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol with invalid trade history")
				overview.SkippedSymbols = append(overview.SkippedSymbols, symbol)
				continue
			}
			return nil, fmt.Errorf("failed to replay %s: %w", symbol, err)
		}

		// Closed-out symbols with nothing realized carry no information.
		if state.TotalShares <= 0 && state.RealizedProfit == 0 {
			continue
		}

		position, err := s.value(symbol, state)
		if err != nil {
			return nil, err
		}

		overview.Positions = append(overview.Positions, *position)
		overview.GrandTotalMarketValue += position.Valuation.MarketValue
	}

	return overview, nil
}

// GetPosition replays and values a single symbol.
// Returns nil when the symbol has no trade history.
func (s *Service) GetPosition(symbol string) (*Position, error) {
	trades, err := s.trades.GetBySymbolAscending(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for %s: %w", symbol, err)
	}
	if len(trades) == 0 {
		return nil, nil
	}

	state, err := costbasis.Replay(trades)
	if err != nil {
		return nil, fmt.Errorf("failed to replay %s: %w", symbol, err)
	}

	return s.value(trades[0].Symbol, state)
}

func (s *Service) value(symbol string, state costbasis.PositionState) (*Position, error) {
	dividendsNet, err := s.dividends.NetBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load dividends for %s: %w", symbol, err)
	}

	quote, err := s.quotes.GetQuote(symbol)
	if err != nil {
		// A dead market data source degrades the view, it doesn't break it.
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, valuing without price")
		quote = nil
	}

	var price *float64
	if quote != nil {
		price = &quote.Price
	}

	return &Position{
		Symbol:    symbol,
		Quote:     quote,
		Valuation: costbasis.Valuate(state, price, dividendsNet),
		OpenLots:  state.OpenLots,
	}, nil
}
