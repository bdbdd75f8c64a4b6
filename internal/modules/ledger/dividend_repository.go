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

const dividendsColumns = `id, symbol, pay_date, amount, fee, created_at`

// DividendRepository handles dividend database operations
type DividendRepository struct {
	ledgerDB *sql.DB // ledger.db - dividends table
	log      zerolog.Logger
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(ledgerDB *sql.DB, log zerolog.Logger) *DividendRepository {
	return &DividendRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "dividend").Logger(),
	}
}

// ValidateDividend rejects dividend rows that would corrupt totals.
func ValidateDividend(d domain.Dividend) error {
	if strings.TrimSpace(d.Symbol) == "" {
		return fmt.Errorf("dividend symbol is required")
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) || d.Amount < 0 {
		return fmt.Errorf("dividend amount must be a non-negative finite number")
	}
	if d.Fee < 0 {
		return fmt.Errorf("dividend fee must not be negative")
	}
	return nil
}

// Create inserts a new dividend record and returns it with ID populated.
func (r *DividendRepository) Create(dividend domain.Dividend) (*domain.Dividend, error) {
	if err := ValidateDividend(dividend); err != nil {
		return nil, fmt.Errorf("failed to create dividend: %w", err)
	}

	now := time.Now().Unix()
	payDate := utils.Midnight(dividend.PayDate).Unix()

	query := `
		INSERT INTO dividends (symbol, pay_date, amount, fee, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.ledgerDB.Exec(query,
		normalizeSymbol(dividend.Symbol),
		payDate,
		dividend.Amount,
		dividend.Fee,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dividend: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend id: %w", err)
	}

	dividend.ID = id
	dividend.Symbol = normalizeSymbol(dividend.Symbol)
	dividend.PayDate = time.Unix(payDate, 0).UTC()
	dividend.CreatedAt = time.Unix(now, 0).UTC()

	r.log.Info().
		Str("symbol", dividend.Symbol).
		Float64("amount", dividend.Amount).
		Msg("Dividend created")

	return &dividend, nil
}

// Update replaces the mutable fields of an existing dividend.
func (r *DividendRepository) Update(dividend domain.Dividend) error {
	if err := ValidateDividend(dividend); err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	query := `
		UPDATE dividends
		SET symbol = ?, pay_date = ?, amount = ?, fee = ?
		WHERE id = ?
	`

	result, err := r.ledgerDB.Exec(query,
		normalizeSymbol(dividend.Symbol),
		utils.Midnight(dividend.PayDate).Unix(),
		dividend.Amount,
		dividend.Fee,
		dividend.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dividend %d not found", dividend.ID)
	}

	return nil
}

// Delete removes a dividend by ID.
func (r *DividendRepository) Delete(id int64) error {
	result, err := r.ledgerDB.Exec("DELETE FROM dividends WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("dividend %d not found", id)
	}

	r.log.Info().Int64("id", id).Msg("Dividend deleted")
	return nil
}

// GetByID retrieves a single dividend. Returns nil when not found.
func (r *DividendRepository) GetByID(id int64) (*domain.Dividend, error) {
	query := "SELECT " + dividendsColumns + " FROM dividends WHERE id = ?"

	var dividend domain.Dividend
	var payDate, createdAt int64

	err := r.ledgerDB.QueryRow(query, id).Scan(
		&dividend.ID,
		&dividend.Symbol,
		&payDate,
		&dividend.Amount,
		&dividend.Fee,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend by id: %w", err)
	}

	dividend.PayDate = time.Unix(payDate, 0).UTC()
	dividend.CreatedAt = time.Unix(createdAt, 0).UTC()
	dividend.Symbol = normalizeSymbol(dividend.Symbol)

	return &dividend, nil
}

// GetBySymbol retrieves dividends for a symbol, most recent first (display order).
func (r *DividendRepository) GetBySymbol(symbol string) ([]domain.Dividend, error) {
	query := `
		SELECT ` + dividendsColumns + ` FROM dividends
		WHERE symbol = ?
		ORDER BY pay_date DESC, id DESC
	`

	rows, err := r.ledgerDB.Query(query, normalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get dividends by symbol: %w", err)
	}
	defer rows.Close()

	return collectDividends(rows)
}

// GetAll retrieves every dividend in pay-date ascending order.
func (r *DividendRepository) GetAll() ([]domain.Dividend, error) {
	query := `
		SELECT ` + dividendsColumns + ` FROM dividends
		ORDER BY pay_date ASC, id ASC
	`

	rows, err := r.ledgerDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get dividends: %w", err)
	}
	defer rows.Close()

	return collectDividends(rows)
}

// NetBySymbol returns SUM(amount - fee) for a symbol. Zero when the
// symbol has no dividends.
func (r *DividendRepository) NetBySymbol(symbol string) (float64, error) {
	query := `SELECT COALESCE(SUM(amount - fee), 0) FROM dividends WHERE symbol = ?`

	var net float64
	err := r.ledgerDB.QueryRow(query, normalizeSymbol(symbol)).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("failed to sum dividends: %w", err)
	}

	return net, nil
}

func collectDividends(rows *sql.Rows) ([]domain.Dividend, error) {
	var dividends []domain.Dividend
	for rows.Next() {
		var dividend domain.Dividend
		var payDate, createdAt int64

		err := rows.Scan(
			&dividend.ID,
			&dividend.Symbol,
			&payDate,
			&dividend.Amount,
			&dividend.Fee,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}

		dividend.PayDate = time.Unix(payDate, 0).UTC()
		dividend.CreatedAt = time.Unix(createdAt, 0).UTC()
		dividend.Symbol = normalizeSymbol(dividend.Symbol)

		dividends = append(dividends, dividend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividends: %w", err)
	}

	return dividends, nil
}
