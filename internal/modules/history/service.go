package history

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/utils"
)

// TradeSource provides replay-ordered trades and symbol metadata.
type TradeSource interface {
	GetBySymbolAscending(symbol string) ([]domain.Trade, error)
	ListSymbols() ([]string, error)
	FirstTradeDate(symbol string) (*time.Time, error)
}

// DividendSource provides a symbol's dividends.
type DividendSource interface {
	GetBySymbol(symbol string) ([]domain.Dividend, error)
}

// PriceHistorySource provides daily closes for a date range.
type PriceHistorySource interface {
	GetHistory(symbol, startDate, endDate string) ([]domain.PricePoint, error)
}

// Service fills the daily stat series from the ledger and price history.
type Service struct {
	stats     *DailyStatRepository
	trades    TradeSource
	dividends DividendSource
	prices    PriceHistorySource
	log       zerolog.Logger
}

// NewService creates a new history sync service.
func NewService(stats *DailyStatRepository, trades TradeSource, dividends DividendSource, prices PriceHistorySource, log zerolog.Logger) *Service {
	return &Service{
		stats:     stats,
		trades:    trades,
		dividends: dividends,
		prices:    prices,
		log:       log.With().Str("service", "history").Logger(),
	}
}

// SyncSymbol projects and stores the missing tail of a symbol's series:
// from the day after the last stored stat (or the first trade date for
// a fresh symbol) through today. Returns the number of rows written.
//
// Gap days are whatever the price source skips - the series simply has
// no row for dates the market didn't trade.
func (s *Service) SyncSymbol(symbol string) (int, error) {
	// The ledger stores normalized symbols; a raw request symbol must not
	// key a second series next to the cron-synced one.
	symbol = utils.NormalizeSymbol(symbol)
	today := time.Now().UTC().Format(utils.DateLayout)

	startDate, err := s.syncStartDate(symbol)
	if err != nil {
		return 0, err
	}
	if startDate == "" {
		s.log.Debug().Str("symbol", symbol).Msg("No trades, nothing to sync")
		return 0, nil
	}
	if startDate > today {
		s.log.Debug().Str("symbol", symbol).Msg("Series already up to date")
		return 0, nil
	}

	points, err := s.prices.GetHistory(symbol, startDate, today)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}
	if len(points) == 0 {
		s.log.Debug().Str("symbol", symbol).Str("from", startDate).Msg("No new market days")
		return 0, nil
	}

	trades, err := s.trades.GetBySymbolAscending(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to load trades for %s: %w", symbol, err)
	}

	dividends, err := s.dividends.GetBySymbol(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to load dividends for %s: %w", symbol, err)
	}

	stats, err := Project(symbol, trades, dividends, points)
	if err != nil {
		return 0, err
	}

	if err := s.stats.UpsertBatch(stats); err != nil {
		return 0, err
	}

	s.log.Info().
		Str("symbol", symbol).
		Str("from", startDate).
		Int("rows", len(stats)).
		Msg("Daily stats synced")

	return len(stats), nil
}

// SyncAll syncs every traded symbol. Per-symbol failures are logged and
// counted but don't stop the rest; the first error is returned after
// all symbols have been attempted.
func (s *Service) SyncAll() (int, error) {
	defer utils.OperationTimer("sync_all", s.log)()

	symbols, err := s.trades.ListSymbols()
	if err != nil {
		return 0, fmt.Errorf("failed to list symbols: %w", err)
	}

	var total int
	var firstErr error
	for _, symbol := range symbols {
		rows, err := s.SyncSymbol(symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Symbol sync failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += rows
	}

	return total, firstErr
}

// RebuildSymbol drops and re-projects a symbol's entire series. Called
// after ledger edits, since past rows were derived from the old rows.
func (s *Service) RebuildSymbol(symbol string) (int, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if _, err := s.stats.DeleteBySymbol(symbol); err != nil {
		return 0, err
	}
	return s.SyncSymbol(symbol)
}

// syncStartDate picks where the sync resumes: the day after the last
// stored stat, or the first trade date when the series is empty.
// Empty string means the symbol has no trades at all.
func (s *Service) syncStartDate(symbol string) (string, error) {
	last, err := s.stats.LastDate(symbol)
	if err != nil {
		return "", err
	}
	if last != nil {
		t, err := time.Parse(utils.DateLayout, *last)
		if err != nil {
			return "", fmt.Errorf("corrupt date in daily_stats for %s: %w", symbol, err)
		}
		return t.AddDate(0, 0, 1).Format(utils.DateLayout), nil
	}

	first, err := s.trades.FirstTradeDate(symbol)
	if err != nil {
		return "", err
	}
	if first == nil {
		return "", nil
	}

	return first.Format(utils.DateLayout), nil
}
