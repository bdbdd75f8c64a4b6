// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/modules/ledger"
	"github.com/yclin/stockfolio/internal/utils"
)

// Rebuilder re-derives data that depends on ledger rows. The history
// series is projected from trades and dividends, so edits here must
// invalidate it.
type Rebuilder interface {
	RebuildSymbol(symbol string) (int, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	trades    *ledger.TradeRepository
	dividends *ledger.DividendRepository
	rebuilder Rebuilder // optional
	log       zerolog.Logger
}

// NewHandler creates a new ledger handler.
// rebuilder may be nil; then ledger edits don't touch derived series.
func NewHandler(
	trades *ledger.TradeRepository,
	dividends *ledger.DividendRepository,
	rebuilder Rebuilder,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		trades:    trades,
		dividends: dividends,
		rebuilder: rebuilder,
		log:       log.With().Str("handler", "ledger").Logger(),
	}
}

// tradeRequest is the JSON body for trade create/update.
type tradeRequest struct {
	Symbol     string  `json:"symbol"`
	TradeDate  string  `json:"trade_date"` // YYYY-MM-DD
	Shares     float64 `json:"shares"`
	TotalPrice float64 `json:"total_price"`
	Fee        float64 `json:"fee"`
}

// dividendRequest is the JSON body for dividend create/update.
type dividendRequest struct {
	Symbol  string  `json:"symbol"`
	PayDate string  `json:"pay_date"` // YYYY-MM-DD
	Amount  float64 `json:"amount"`
	Fee     float64 `json:"fee"`
}

// HandleGetTrades handles GET /api/ledger/trades
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	var trades []domain.Trade
	var err error

	if symbol != "" {
		trades, err = h.trades.GetBySymbol(symbol)
	} else {
		limit := 100
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if parsedLimit, parseErr := strconv.Atoi(limitStr); parseErr == nil && parsedLimit > 0 {
				limit = parsedLimit
			}
		}
		trades, err = h.trades.GetHistory(limit)
	}

	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query trades")
		http.Error(w, "Failed to query trades", http.StatusInternalServerError)
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"trades": trades,
			"count":  len(trades),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCreateTrade handles POST /api/ledger/trades
func (h *Handler) HandleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.tradeFromRequest(req, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.trades.Create(*trade)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create trade")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.rebuild(created.Symbol)

	response := map[string]interface{}{
		"data": created,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleUpdateTrade handles PUT /api/ledger/trades/{id}
func (h *Handler) HandleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The symbol may change; both old and new series need a rebuild.
	previous, err := h.trades.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to load trade")
		http.Error(w, "Failed to load trade", http.StatusInternalServerError)
		return
	}
	if previous == nil {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}

	trade, err := h.tradeFromRequest(req, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.trades.Update(*trade); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update trade")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.rebuild(previous.Symbol)
	if trade.Symbol != previous.Symbol {
		h.rebuild(trade.Symbol)
	}

	response := map[string]interface{}{
		"data": trade,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteTrade handles DELETE /api/ledger/trades/{id}
func (h *Handler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	trade, err := h.trades.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to load trade")
		http.Error(w, "Failed to load trade", http.StatusInternalServerError)
		return
	}
	if trade == nil {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}

	if err := h.trades.Delete(id); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete trade")
		http.Error(w, "Failed to delete trade", http.StatusInternalServerError)
		return
	}

	h.rebuild(trade.Symbol)

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetTradesSummary handles GET /api/ledger/trades/summary
func (h *Handler) HandleGetTradesSummary(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.trades.ListSymbols()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}

	summary := make([]map[string]interface{}, 0, len(symbols))
	for _, symbol := range symbols {
		count, err := h.trades.CountBySymbol(symbol)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to count trades")
			continue
		}

		entry := map[string]interface{}{
			"symbol": symbol,
			"trades": count,
		}

		if first, err := h.trades.FirstTradeDate(symbol); err == nil && first != nil {
			entry["first_trade_date"] = first.Format(utils.DateLayout)
		}

		summary = append(summary, entry)
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": summary,
			"count":   len(summary),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSymbols handles GET /api/ledger/symbols
func (h *Handler) HandleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.trades.ListSymbols()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		http.Error(w, "Failed to list symbols", http.StatusInternalServerError)
		return
	}

	if symbols == nil {
		symbols = []string{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
			"count":   len(symbols),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetDividends handles GET /api/ledger/dividends
func (h *Handler) HandleGetDividends(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	var dividends []domain.Dividend
	var err error

	if symbol != "" {
		dividends, err = h.dividends.GetBySymbol(symbol)
	} else {
		dividends, err = h.dividends.GetAll()
	}

	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query dividends")
		http.Error(w, "Failed to query dividends", http.StatusInternalServerError)
		return
	}

	if dividends == nil {
		dividends = []domain.Dividend{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"dividends": dividends,
			"count":     len(dividends),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCreateDividend handles POST /api/ledger/dividends
func (h *Handler) HandleCreateDividend(w http.ResponseWriter, r *http.Request) {
	var req dividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dividend, err := h.dividendFromRequest(req, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.dividends.Create(*dividend)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create dividend")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.rebuild(created.Symbol)

	response := map[string]interface{}{
		"data": created,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleUpdateDividend handles PUT /api/ledger/dividends/{id}
func (h *Handler) HandleUpdateDividend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid dividend id", http.StatusBadRequest)
		return
	}

	var req dividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	previous, err := h.dividends.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to load dividend")
		http.Error(w, "Failed to load dividend", http.StatusInternalServerError)
		return
	}
	if previous == nil {
		http.Error(w, "Dividend not found", http.StatusNotFound)
		return
	}

	dividend, err := h.dividendFromRequest(req, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.dividends.Update(*dividend); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update dividend")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.rebuild(previous.Symbol)
	if dividend.Symbol != previous.Symbol {
		h.rebuild(dividend.Symbol)
	}

	response := map[string]interface{}{
		"data": dividend,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteDividend handles DELETE /api/ledger/dividends/{id}
func (h *Handler) HandleDeleteDividend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid dividend id", http.StatusBadRequest)
		return
	}

	dividend, err := h.dividends.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to load dividend")
		http.Error(w, "Failed to load dividend", http.StatusInternalServerError)
		return
	}
	if dividend == nil {
		http.Error(w, "Dividend not found", http.StatusNotFound)
		return
	}

	if err := h.dividends.Delete(id); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete dividend")
		http.Error(w, "Failed to delete dividend", http.StatusInternalServerError)
		return
	}

	h.rebuild(dividend.Symbol)

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *Handler) tradeFromRequest(req tradeRequest, id int64) (*domain.Trade, error) {
	tradeDate, err := utils.DateToUnix(req.TradeDate)
	if err != nil {
		return nil, err
	}

	return &domain.Trade{
		ID:         id,
		Symbol:     req.Symbol,
		TradeDate:  time.Unix(tradeDate, 0).UTC(),
		Shares:     req.Shares,
		TotalPrice: req.TotalPrice,
		Fee:        req.Fee,
	}, nil
}

func (h *Handler) dividendFromRequest(req dividendRequest, id int64) (*domain.Dividend, error) {
	payDate, err := utils.DateToUnix(req.PayDate)
	if err != nil {
		return nil, err
	}

	return &domain.Dividend{
		ID:      id,
		Symbol:  req.Symbol,
		PayDate: time.Unix(payDate, 0).UTC(),
		Amount:  req.Amount,
		Fee:     req.Fee,
	}, nil
}

// rebuild re-derives the history series after a ledger edit.
// Failures are logged, not surfaced: the write itself succeeded.
func (h *Handler) rebuild(symbol string) {
	if h.rebuilder == nil {
		return
	}
	if _, err := h.rebuilder.RebuildSymbol(symbol); err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to rebuild history series")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
