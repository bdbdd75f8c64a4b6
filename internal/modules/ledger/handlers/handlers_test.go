package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/modules/ledger"
)

type recordingRebuilder struct {
	symbols []string
}

func (r *recordingRebuilder) RebuildSymbol(symbol string) (int, error) {
	r.symbols = append(r.symbols, symbol)
	return 0, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *ledger.TradeRepository, *recordingRebuilder) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, ledger.InitSchema(db))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	trades := ledger.NewTradeRepository(db, log)
	dividends := ledger.NewDividendRepository(db, log)
	rebuilder := &recordingRebuilder{}

	handler := NewHandler(trades, dividends, rebuilder, log)
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	return router, trades, rebuilder
}

func TestHandleCreateTrade(t *testing.T) {
	router, trades, rebuilder := setupRouter(t)

	body := `{"symbol":"2330","trade_date":"2024-03-15","shares":100,"total_price":1000,"fee":20}`
	req := httptest.NewRequest("POST", "/api/ledger/trades", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Trade `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2330", resp.Data.Symbol)
	assert.NotZero(t, resp.Data.ID)

	stored, err := trades.GetBySymbol("2330")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// Ledger edits invalidate the derived series.
	assert.Equal(t, []string{"2330"}, rebuilder.symbols)
}

func TestHandleCreateTrade_RejectsBadInput(t *testing.T) {
	router, _, _ := setupRouter(t)

	testCases := []struct {
		name string
		body string
	}{
		{"zero shares", `{"symbol":"2330","trade_date":"2024-03-15","shares":0,"total_price":1000}`},
		{"bad date", `{"symbol":"2330","trade_date":"15/03/2024","shares":100,"total_price":1000}`},
		{"missing symbol", `{"trade_date":"2024-03-15","shares":100,"total_price":1000}`},
		{"not json", `shares=100`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/ledger/trades", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleGetTrades_FilterBySymbol(t *testing.T) {
	router, trades, _ := setupRouter(t)

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := trades.Create(domain.Trade{Symbol: "2330", TradeDate: d, Shares: 100, TotalPrice: 1000})
	require.NoError(t, err)
	_, err = trades.Create(domain.Trade{Symbol: "0050", TradeDate: d, Shares: 10, TotalPrice: 130})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/ledger/trades?symbol=2330", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Trades []domain.Trade `json:"trades"`
			Count  int            `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, "2330", resp.Data.Trades[0].Symbol)
}

func TestHandleUpdateTrade_NotFound(t *testing.T) {
	router, _, _ := setupRouter(t)

	body := `{"symbol":"2330","trade_date":"2024-03-15","shares":100,"total_price":1000}`
	req := httptest.NewRequest("PUT", "/api/ledger/trades/999", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteTrade(t *testing.T) {
	router, trades, rebuilder := setupRouter(t)

	created, err := trades.Create(domain.Trade{
		Symbol: "2330", TradeDate: time.Now(), Shares: 100, TotalPrice: 1000,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/ledger/trades/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rebuilder.symbols, created.Symbol)

	got, err := trades.GetByID(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHandleDividendLifecycle(t *testing.T) {
	router, _, rebuilder := setupRouter(t)

	body := `{"symbol":"2330","pay_date":"2024-07-15","amount":500,"fee":10}`
	req := httptest.NewRequest("POST", "/api/ledger/dividends", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest("GET", "/api/ledger/dividends?symbol=2330", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Dividends []domain.Dividend `json:"dividends"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Dividends, 1)
	assert.InDelta(t, 490, resp.Data.Dividends[0].Net(), 1e-9)

	req = httptest.NewRequest("DELETE", "/api/ledger/dividends/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"2330", "2330"}, rebuilder.symbols)
}

func TestHandleGetSymbols(t *testing.T) {
	router, trades, _ := setupRouter(t)

	d := time.Now()
	for _, symbol := range []string{"2330", "0050"} {
		_, err := trades.Create(domain.Trade{Symbol: symbol, TradeDate: d, Shares: 1, TotalPrice: 10})
		require.NoError(t, err)
	}

	req := httptest.NewRequest("GET", "/api/ledger/symbols", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Symbols []string `json:"symbols"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"2330", "0050"}, resp.Data.Symbols)
}
