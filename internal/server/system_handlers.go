package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/yclin/stockfolio/internal/database"
	"github.com/yclin/stockfolio/internal/scheduler"
)

// SystemHandlers provides system monitoring and job trigger endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	ledgerDB    *database.DB
	historyDB   *database.DB
	cacheDB     *database.DB
	syncJob     scheduler.Job
	cleanupJob  scheduler.Job
	startupTime time.Time
}

// NewSystemHandlers creates a new SystemHandlers
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	ledgerDB *database.DB,
	historyDB *database.DB,
	cacheDB *database.DB,
	syncJob scheduler.Job,
	cleanupJob scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		ledgerDB:    ledgerDB,
		historyDB:   historyDB,
		cacheDB:     cacheDB,
		syncJob:     syncJob,
		cleanupJob:  cleanupJob,
		startupTime: time.Now(),
	}
}

// DBInfo describes a single database file
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	PageCount int64   `json:"page_count"`
	FreePages int64   `json:"free_pages"`
}

// HandleSystemStatus returns process and host status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	status := "healthy"
	for _, db := range []*database.DB{h.ledgerDB, h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Quick check failed")
			status = "degraded"
		}
	}

	response := map[string]interface{}{
		"status":       status,
		"uptime_hours": time.Since(h.startupTime).Hours(),
		"cpu_percent":  cpuPercent,
		"ram_percent":  ramPercent,
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	databases := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range []*database.DB{h.ledgerDB, h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}

		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to collect database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalSizeMB += sizeMB

		databases = append(databases, DBInfo{
			Name:      db.Name(),
			Path:      db.Path(),
			SizeMB:    sizeMB,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount: stats.PageCount,
			FreePages: stats.FreelistCount,
		})
	}

	response := map[string]interface{}{
		"databases":     databases,
		"total_size_mb": totalSizeMB,
		"last_checked":  time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDiskUsage returns disk usage for the data directory
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := map[string]interface{}{
		"data_dir_mb": h.getDirSize(h.dataDir),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleIntegrityCheck runs a full integrity check on every database.
// Expensive; meant for manual maintenance, not health polling.
func (h *SystemHandlers) HandleIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{}
	status := http.StatusOK

	for _, db := range []*database.DB{h.ledgerDB, h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check failed")
			results[db.Name()] = err.Error()
			status = http.StatusInternalServerError
		} else {
			results[db.Name()] = "ok"
		}
	}

	h.writeJSON(w, status, map[string]interface{}{
		"databases": results,
	})
}

// HandleVacuum reclaims free pages in every database
func (h *SystemHandlers) HandleVacuum(w http.ResponseWriter, r *http.Request) {
	vacuumed := []string{}

	for _, db := range []*database.DB{h.ledgerDB, h.historyDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.Vacuum(); err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Vacuum failed")
			h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"database": db.Name(),
				"error":    err.Error(),
			})
			return
		}
		vacuumed = append(vacuumed, db.Name())
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vacuumed": vacuumed,
	})
}

// HandleTriggerSync runs the daily stats sync job immediately
func (h *SystemHandlers) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.syncJob)
}

// HandleTriggerCleanup runs the client data cleanup job immediately
func (h *SystemHandlers) HandleTriggerCleanup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.cleanupJob)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "job not configured",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")

	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"job":   job.Name(),
			"error": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":    job.Name(),
		"status": "completed",
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval so the API call stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
