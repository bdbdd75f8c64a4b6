// Package ledger provides persistence for the trade and dividend record
// of truth. Rows here are the inputs to every cost-basis computation;
// nothing in this package derives or interprets them.
package ledger

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the ledger tables if they do not exist.
// Dates are stored as Unix timestamps at midnight UTC.
func InitSchema(ledgerDB *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		trade_date INTEGER NOT NULL,
		shares REAL NOT NULL,
		total_price REAL NOT NULL,
		fee REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_date ON trades(symbol, trade_date);

	CREATE TABLE IF NOT EXISTS dividends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		pay_date INTEGER NOT NULL,
		amount REAL NOT NULL,
		fee REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dividends_symbol_date ON dividends(symbol, pay_date);
	`

	if _, err := ledgerDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return nil
}
