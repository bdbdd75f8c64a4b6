package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date format used across the API and storage.
const DateLayout = "2006-01-02"

// DateToUnix converts a YYYY-MM-DD string to a Unix timestamp at midnight UTC.
// Dates are stored as Unix integers; this is the single conversion point.
func DateToUnix(date string) (int64, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix(), nil
}

// Midnight truncates a time to midnight UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
