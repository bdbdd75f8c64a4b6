package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/database"
)

// WALCheckpointJob monitors WAL size across the application databases and
// forces a checkpoint on any database whose WAL has grown large.
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(ledgerDB, historyDB, cacheDB *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		log: log.With().Str("job", "wal_checkpoint").Logger(),
		databases: map[string]*database.DB{
			"ledger":  ledgerDB,
			"history": historyDB,
			"cache":   cacheDB,
		},
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	checkedCount := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", name).
				Msg("Failed to check WAL checkpoint")
			continue
		}

		if frames > 1000 {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", frames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, forcing truncate checkpoint")

			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().
					Err(err).
					Str("database", name).
					Msg("Forced checkpoint failed")
			}
		} else {
			j.log.Debug().
				Str("database", name).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
		}

		checkedCount++
	}

	j.log.Info().
		Int("checked", checkedCount).
		Msg("WAL checkpoint check completed")

	return nil
}
