// Package handlers provides HTTP handlers for the daily stat series.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/modules/history"
)

// Handler handles history HTTP requests
type Handler struct {
	service *history.Service
	stats   *history.DailyStatRepository
	log     zerolog.Logger
}

// NewHandler creates a new history handler
func NewHandler(service *history.Service, stats *history.DailyStatRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		stats:   stats,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleGetStats handles GET /api/history/stats/{symbol}
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stats, err := h.stats.GetBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load daily stats")
		http.Error(w, "Failed to load daily stats", http.StatusInternalServerError)
		return
	}

	if stats == nil {
		stats = []domain.DailyStat{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"stats":  stats,
			"count":  len(stats),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSummary handles GET /api/history/stats/{symbol}/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	summary, err := h.service.Summarize(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to summarize series")
		http.Error(w, "Failed to summarize series", http.StatusInternalServerError)
		return
	}

	if summary == nil {
		http.Error(w, "No stats recorded for symbol", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSyncSymbol handles POST /api/history/sync/{symbol}
func (h *Handler) HandleSyncSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	rows, err := h.service.SyncSymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to sync daily stats")
		http.Error(w, "Failed to sync daily stats", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":       symbol,
			"rows_written": rows,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSyncAll handles POST /api/history/sync
func (h *Handler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.SyncAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to sync daily stats")
		http.Error(w, "Failed to sync daily stats", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"rows_written": rows,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
