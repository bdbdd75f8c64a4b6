package history

import (
	"github.com/rs/zerolog"
)

// SyncJob runs the daily stat sync across all symbols.
// Scheduled after market close so the day's bar exists upstream.
type SyncJob struct {
	service *Service
	log     zerolog.Logger
}

// NewSyncJob creates a new daily stat sync job.
func NewSyncJob(service *Service, log zerolog.Logger) *SyncJob {
	return &SyncJob{
		service: service,
		log:     log.With().Str("job", "sync_daily_stats").Logger(),
	}
}

// Run executes the sync across all traded symbols.
func (j *SyncJob) Run() error {
	rows, err := j.service.SyncAll()
	if err != nil {
		j.log.Error().Err(err).Int("rows", rows).Msg("Daily stat sync finished with errors")
		return err
	}

	j.log.Info().Int("rows", rows).Msg("Daily stat sync completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SyncJob) Name() string {
	return "sync_daily_stats"
}
