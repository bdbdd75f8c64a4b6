package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// slowOperationThreshold flags syncs that spent too long in the market
// data API; a full-history sync for one symbol should finish well inside
// this window.
const slowOperationThreshold = 30 * time.Second

// OperationTimer measures an operation's duration, defer-style:
//
//	func (s *Service) SyncAll() (int, error) {
//	    defer utils.OperationTimer("sync_all", s.log)()
//	    ...
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > slowOperationThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
	}
}
