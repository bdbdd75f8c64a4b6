package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/database"
	"github.com/yclin/stockfolio/internal/domain"
)

// DailyStatRepository handles the daily_stats table in history.db.
type DailyStatRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewDailyStatRepository creates a new daily stat repository
func NewDailyStatRepository(historyDB *sql.DB, log zerolog.Logger) *DailyStatRepository {
	return &DailyStatRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "daily_stat").Logger(),
	}
}

// InitSchema creates the daily_stats table if it does not exist.
// Dates are YYYY-MM-DD strings; the (symbol, date) key makes upserts
// idempotent.
func InitSchema(historyDB *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_stats (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		total_cost REAL NOT NULL,
		total_value REAL NOT NULL,
		PRIMARY KEY (symbol, date)
	);
	`

	if _, err := historyDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return nil
}

// Upsert inserts or replaces a single daily stat row.
func (r *DailyStatRepository) Upsert(stat domain.DailyStat) error {
	query := `
		INSERT INTO daily_stats (symbol, date, total_cost, total_value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			total_cost = excluded.total_cost,
			total_value = excluded.total_value
	`

	_, err := r.historyDB.Exec(query, stat.Symbol, stat.Date, stat.TotalCost, stat.TotalValue)
	if err != nil {
		return fmt.Errorf("failed to upsert daily stat: %w", err)
	}

	return nil
}

// UpsertBatch writes a batch of stats in a single transaction.
func (r *DailyStatRepository) UpsertBatch(stats []domain.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}

	err := database.WithTransaction(r.historyDB, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO daily_stats (symbol, date, total_cost, total_value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(symbol, date) DO UPDATE SET
				total_cost = excluded.total_cost,
				total_value = excluded.total_value
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, stat := range stats {
			if _, err := stmt.Exec(stat.Symbol, stat.Date, stat.TotalCost, stat.TotalValue); err != nil {
				return fmt.Errorf("failed to upsert stat for %s %s: %w", stat.Symbol, stat.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("rows", len(stats)).Msg("Daily stats upserted")
	return nil
}

// GetBySymbol returns a symbol's series in date ascending order.
func (r *DailyStatRepository) GetBySymbol(symbol string) ([]domain.DailyStat, error) {
	query := `
		SELECT symbol, date, total_cost, total_value FROM daily_stats
		WHERE symbol = ?
		ORDER BY date ASC
	`

	rows, err := r.historyDB.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.DailyStat
	for rows.Next() {
		var stat domain.DailyStat
		if err := rows.Scan(&stat.Symbol, &stat.Date, &stat.TotalCost, &stat.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}

// LastDate returns the most recent stored date for a symbol, or nil
// when the symbol has no stats yet.
func (r *DailyStatRepository) LastDate(symbol string) (*string, error) {
	query := `SELECT MAX(date) FROM daily_stats WHERE symbol = ?`

	var last sql.NullString
	err := r.historyDB.QueryRow(query, symbol).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last stat date: %w", err)
	}

	if !last.Valid {
		return nil, nil
	}

	return &last.String, nil
}

// DeleteBySymbol removes a symbol's whole series. Used when a ledger
// edit invalidates previously projected rows.
func (r *DailyStatRepository) DeleteBySymbol(symbol string) (int64, error) {
	result, err := r.historyDB.Exec("DELETE FROM daily_stats WHERE symbol = ?", symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to delete daily stats: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
