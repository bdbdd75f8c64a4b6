package utils

import "strings"

// NormalizeSymbol canonicalizes a user-supplied symbol. Every store keyed
// by symbol (trades, dividends, daily stats) must write through this, or
// "2330.tw" and "2330.TW" become two divergent rows for one position.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
