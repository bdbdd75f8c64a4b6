package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/utils"
)

// tradesColumns is the list of columns for the trades table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match the scanTrade* functions.
const tradesColumns = `id, symbol, trade_date, shares, total_price, fee, created_at`

// TradeRepository handles trade database operations
type TradeRepository struct {
	ledgerDB *sql.DB // ledger.db - trades table
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// ValidateTrade rejects rows the replay engine cannot interpret.
// The check runs at the write boundary so a bad row never reaches storage.
func ValidateTrade(t domain.Trade) error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("trade symbol is required")
	}
	if t.Shares == 0 {
		return fmt.Errorf("trade shares must be non-zero")
	}
	if math.IsNaN(t.Shares) || math.IsInf(t.Shares, 0) {
		return fmt.Errorf("trade shares must be finite")
	}
	if math.IsNaN(t.TotalPrice) || math.IsInf(t.TotalPrice, 0) || t.TotalPrice < 0 {
		return fmt.Errorf("trade total price must be a non-negative finite number")
	}
	if t.Fee < 0 {
		return fmt.Errorf("trade fee must not be negative")
	}
	return nil
}

// Create inserts a new trade record and returns it with ID populated.
func (r *TradeRepository) Create(trade domain.Trade) (*domain.Trade, error) {
	if err := ValidateTrade(trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	now := time.Now().Unix()
	tradeDate := utils.Midnight(trade.TradeDate).Unix()

	query := `
		INSERT INTO trades (symbol, trade_date, shares, total_price, fee, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.ledgerDB.Exec(query,
		normalizeSymbol(trade.Symbol),
		tradeDate,
		trade.Shares,
		trade.TotalPrice,
		trade.Fee,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get trade id: %w", err)
	}

	trade.ID = id
	trade.Symbol = normalizeSymbol(trade.Symbol)
	trade.TradeDate = time.Unix(tradeDate, 0).UTC()
	trade.CreatedAt = time.Unix(now, 0).UTC()

	r.log.Info().
		Str("symbol", trade.Symbol).
		Float64("shares", trade.Shares).
		Float64("total_price", trade.TotalPrice).
		Msg("Trade created")

	return &trade, nil
}

// Update replaces the mutable fields of an existing trade.
func (r *TradeRepository) Update(trade domain.Trade) error {
	if err := ValidateTrade(trade); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	query := `
		UPDATE trades
		SET symbol = ?, trade_date = ?, shares = ?, total_price = ?, fee = ?
		WHERE id = ?
	`

	result, err := r.ledgerDB.Exec(query,
		normalizeSymbol(trade.Symbol),
		utils.Midnight(trade.TradeDate).Unix(),
		trade.Shares,
		trade.TotalPrice,
		trade.Fee,
		trade.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d not found", trade.ID)
	}

	return nil
}

// Delete removes a trade by ID.
func (r *TradeRepository) Delete(id int64) error {
	result, err := r.ledgerDB.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %d not found", id)
	}

	r.log.Info().Int64("id", id).Msg("Trade deleted")
	return nil
}

// GetByID retrieves a single trade. Returns nil when not found.
func (r *TradeRepository) GetByID(id int64) (*domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades WHERE id = ?"

	row := r.ledgerDB.QueryRow(query, id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by id: %w", err)
	}

	return &trade, nil
}

// GetBySymbol retrieves trades for a symbol, most recent first (display order).
func (r *TradeRepository) GetBySymbol(symbol string) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE symbol = ?
		ORDER BY trade_date DESC, id DESC
	`

	rows, err := r.ledgerDB.Query(query, normalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get trades by symbol: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetBySymbolAscending retrieves a symbol's trades in replay order:
// trade date ascending, insertion order breaking same-day ties.
func (r *TradeRepository) GetBySymbolAscending(symbol string) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE symbol = ?
		ORDER BY trade_date ASC, id ASC
	`

	rows, err := r.ledgerDB.Query(query, normalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get trades by symbol: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetAllAscending retrieves every trade in replay order.
func (r *TradeRepository) GetAllAscending() ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		ORDER BY trade_date ASC, id ASC
	`

	rows, err := r.ledgerDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetHistory retrieves recent trades across all symbols, most recent first.
func (r *TradeRepository) GetHistory(limit int) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		ORDER BY trade_date DESC, id DESC
		LIMIT ?
	`

	rows, err := r.ledgerDB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade history: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListSymbols returns the distinct traded symbols in first-trade order.
// The ordering drives display: symbols appear in the order the portfolio
// first touched them, not alphabetically.
func (r *TradeRepository) ListSymbols() ([]string, error) {
	query := `
		SELECT symbol FROM trades
		GROUP BY symbol
		ORDER BY MIN(id) ASC
	`

	rows, err := r.ledgerDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// FirstTradeDate returns the date of the first trade for a symbol,
// or nil when the symbol has no trades.
func (r *TradeRepository) FirstTradeDate(symbol string) (*time.Time, error) {
	query := `SELECT MIN(trade_date) FROM trades WHERE symbol = ?`

	var first sql.NullInt64
	err := r.ledgerDB.QueryRow(query, normalizeSymbol(symbol)).Scan(&first)
	if err != nil {
		return nil, fmt.Errorf("failed to get first trade date: %w", err)
	}

	if !first.Valid {
		return nil, nil
	}

	t := time.Unix(first.Int64, 0).UTC()
	return &t, nil
}

// CountBySymbol returns the number of trades recorded for a symbol.
func (r *TradeRepository) CountBySymbol(symbol string) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow("SELECT COUNT(*) FROM trades WHERE symbol = ?", normalizeSymbol(symbol)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// Helper methods

func collectTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTradeFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

func scanTrade(row *sql.Row) (domain.Trade, error) {
	var trade domain.Trade
	var tradeDate, createdAt int64

	err := row.Scan(
		&trade.ID,
		&trade.Symbol,
		&tradeDate,
		&trade.Shares,
		&trade.TotalPrice,
		&trade.Fee,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	trade.TradeDate = time.Unix(tradeDate, 0).UTC()
	trade.CreatedAt = time.Unix(createdAt, 0).UTC()
	trade.Symbol = normalizeSymbol(trade.Symbol)

	return trade, nil
}

func scanTradeFromRows(rows *sql.Rows) (domain.Trade, error) {
	var trade domain.Trade
	var tradeDate, createdAt int64

	err := rows.Scan(
		&trade.ID,
		&trade.Symbol,
		&tradeDate,
		&trade.Shares,
		&trade.TotalPrice,
		&trade.Fee,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	trade.TradeDate = time.Unix(tradeDate, 0).UTC()
	trade.CreatedAt = time.Unix(createdAt, 0).UTC()
	trade.Symbol = normalizeSymbol(trade.Symbol)

	return trade, nil
}

func normalizeSymbol(symbol string) string {
	return utils.NormalizeSymbol(symbol)
}
