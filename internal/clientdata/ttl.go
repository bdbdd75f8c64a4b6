package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Quotes move intraday; ten minutes keeps the UI responsive without
	// hammering the upstream API.
	TTLQuote = 10 * time.Minute

	// Historical daily closes only grow by one bar a day.
	TTLHistory = 6 * time.Hour
)
