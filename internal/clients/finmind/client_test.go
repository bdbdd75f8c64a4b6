package finmind

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yclin/stockfolio/internal/clientdata"
)

func newTestCache(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, clientdata.InitSchema(db))

	return clientdata.NewRepository(db)
}

func priceServer(t *testing.T, bars []apiBar, calls *int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		assert.Equal(t, "TaiwanStockPrice", r.URL.Query().Get("dataset"))

		resp := apiResponse{Msg: "success", Status: 200, Data: bars}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetQuote_ChangeFromLastTwoCloses(t *testing.T) {
	server := priceServer(t, []apiBar{
		{Date: "2024-03-13", StockID: "2330", Close: 760},
		{Date: "2024-03-14", StockID: "2330", Close: 770},
		{Date: "2024-03-15", StockID: "2330", Close: 785},
	}, nil)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, zerolog.Nop())

	quote, err := client.GetQuote("2330.TW")
	require.NoError(t, err)
	require.NotNil(t, quote)

	assert.Equal(t, "2330.TW", quote.Symbol)
	assert.InDelta(t, 785, quote.Price, 1e-9)
	assert.InDelta(t, 15, quote.ChangeAmount, 1e-9)
	assert.InDelta(t, 15.0/770.0*100, quote.ChangePercent, 1e-9)
}

func TestGetQuote_SingleBarHasZeroChange(t *testing.T) {
	server := priceServer(t, []apiBar{
		{Date: "2024-03-15", StockID: "2330", Close: 785},
	}, nil)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, zerolog.Nop())

	quote, err := client.GetQuote("2330")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.InDelta(t, 785, quote.Price, 1e-9)
	assert.Equal(t, float64(0), quote.ChangePercent)
}

func TestGetQuote_NoDataReturnsNilNil(t *testing.T) {
	server := priceServer(t, nil, nil)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, zerolog.Nop())

	quote, err := client.GetQuote("9999")
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestGetQuote_CacheAvoidsSecondFetch(t *testing.T) {
	var calls int32
	server := priceServer(t, []apiBar{
		{Date: "2024-03-14", StockID: "2330", Close: 770},
		{Date: "2024-03-15", StockID: "2330", Close: 785},
	}, &calls)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, newTestCache(t), zerolog.Nop())

	first, err := client.GetQuote("2330")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := client.GetQuote("2330")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetQuote_StaleCacheServedOnAPIFailure(t *testing.T) {
	cache := newTestCache(t)

	server := priceServer(t, []apiBar{
		{Date: "2024-03-14", StockID: "2330", Close: 770},
		{Date: "2024-03-15", StockID: "2330", Close: 785},
	}, nil)

	client := NewClient(Config{BaseURL: server.URL}, cache, zerolog.Nop())

	_, err := client.GetQuote("2330")
	require.NoError(t, err)

	// Expire the cached quote, then kill the server: stale beats nothing.
	require.NoError(t, cache.Delete("finmind_quote", "2330"))
	raw, err := json.Marshal(map[string]interface{}{"symbol": "2330", "price": 785.0})
	require.NoError(t, err)
	require.NoError(t, cache.Store("finmind_quote", "2330", json.RawMessage(raw), -1))
	server.Close()

	quote, err := client.GetQuote("2330")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.InDelta(t, 785, quote.Price, 1e-9)
}

func TestGetHistory_ParsesPoints(t *testing.T) {
	server := priceServer(t, []apiBar{
		{Date: "2024-03-14", StockID: "0050", Close: 130.5},
		{Date: "2024-03-15", StockID: "0050", Close: 131.2},
	}, nil)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, zerolog.Nop())

	points, err := client.GetHistory("0050", "2024-03-01", "2024-03-15")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "2024-03-14", points[0].Date.Format("2006-01-02"))
	assert.InDelta(t, 130.5, points[0].Close, 1e-9)
	assert.InDelta(t, 131.2, points[1].Close, 1e-9)
}

func TestGetQuote_APIErrorStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Msg: "token error", Status: 400})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil, zerolog.Nop())

	_, err := client.GetQuote("2330")
	assert.Error(t, err)
}
