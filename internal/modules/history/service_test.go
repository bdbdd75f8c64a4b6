package history

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yclin/stockfolio/internal/domain"
)

type fakeTradeSource struct {
	trades map[string][]domain.Trade
}

func (f *fakeTradeSource) GetBySymbolAscending(symbol string) ([]domain.Trade, error) {
	return f.trades[symbol], nil
}

func (f *fakeTradeSource) ListSymbols() ([]string, error) {
	var symbols []string
	for s := range f.trades {
		symbols = append(symbols, s)
	}
	return symbols, nil
}

func (f *fakeTradeSource) FirstTradeDate(symbol string) (*time.Time, error) {
	trades := f.trades[symbol]
	if len(trades) == 0 {
		return nil, nil
	}
	first := trades[0].TradeDate
	return &first, nil
}

type fakeDividendSource struct {
	dividends map[string][]domain.Dividend
}

func (f *fakeDividendSource) GetBySymbol(symbol string) ([]domain.Dividend, error) {
	return f.dividends[symbol], nil
}

type fakePriceSource struct {
	points    map[string][]domain.PricePoint
	lastStart string
	calls     int
}

func (f *fakePriceSource) GetHistory(symbol, startDate, endDate string) ([]domain.PricePoint, error) {
	f.calls++
	f.lastStart = startDate

	var out []domain.PricePoint
	for _, p := range f.points[symbol] {
		d := p.Date.Format("2006-01-02")
		if d >= startDate && d <= endDate {
			out = append(out, p)
		}
	}
	return out, nil
}

func setupStatRepo(t *testing.T) *DailyStatRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))

	return NewDailyStatRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestDailyStatRepository_UpsertIsIdempotent(t *testing.T) {
	repo := setupStatRepo(t)

	stat := domain.DailyStat{Symbol: "2330", Date: "2024-02-01", TotalCost: 1000, TotalValue: 1100}
	require.NoError(t, repo.Upsert(stat))

	// Same key with new figures replaces, never duplicates.
	stat.TotalValue = 1200
	require.NoError(t, repo.Upsert(stat))

	stats, err := repo.GetBySymbol("2330")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.InDelta(t, 1200, stats[0].TotalValue, 1e-9)
}

func TestDailyStatRepository_LastDate(t *testing.T) {
	repo := setupStatRepo(t)

	last, err := repo.LastDate("2330")
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, repo.UpsertBatch([]domain.DailyStat{
		{Symbol: "2330", Date: "2024-02-01", TotalCost: 1, TotalValue: 1},
		{Symbol: "2330", Date: "2024-02-05", TotalCost: 1, TotalValue: 1},
		{Symbol: "0050", Date: "2024-02-09", TotalCost: 1, TotalValue: 1},
	}))

	last, err = repo.LastDate("2330")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2024-02-05", *last)
}

func newSyncService(t *testing.T, trades *fakeTradeSource, prices *fakePriceSource) (*Service, *DailyStatRepository) {
	t.Helper()
	repo := setupStatRepo(t)
	service := NewService(repo, trades, &fakeDividendSource{}, prices, zerolog.New(nil).Level(zerolog.Disabled))
	return service, repo
}

func TestSyncSymbol_FreshSymbolStartsAtFirstTrade(t *testing.T) {
	tradeDate := time.Now().UTC().AddDate(0, 0, -3)
	trades := &fakeTradeSource{trades: map[string][]domain.Trade{
		"2330": {{ID: 1, Symbol: "2330", TradeDate: tradeDate, Shares: 100, TotalPrice: 1000}},
	}}
	prices := &fakePriceSource{points: map[string][]domain.PricePoint{
		"2330": {
			{Date: tradeDate, Close: 11},
			{Date: tradeDate.AddDate(0, 0, 1), Close: 12},
		},
	}}

	service, repo := newSyncService(t, trades, prices)

	rows, err := service.SyncSymbol("2330")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, tradeDate.Format("2006-01-02"), prices.lastStart)

	stats, err := repo.GetBySymbol("2330")
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}

func TestSyncSymbol_ResumesAfterLastStoredDate(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	lastStored := yesterday.AddDate(0, 0, -5)

	trades := &fakeTradeSource{trades: map[string][]domain.Trade{
		"2330": {{ID: 1, Symbol: "2330", TradeDate: lastStored.AddDate(0, 0, -10), Shares: 10, TotalPrice: 100}},
	}}
	prices := &fakePriceSource{points: map[string][]domain.PricePoint{
		"2330": {{Date: yesterday, Close: 12}},
	}}

	service, repo := newSyncService(t, trades, prices)
	require.NoError(t, repo.Upsert(domain.DailyStat{
		Symbol: "2330", Date: lastStored.Format("2006-01-02"), TotalCost: 100, TotalValue: 110,
	}))

	rows, err := service.SyncSymbol("2330")
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Equal(t, lastStored.AddDate(0, 0, 1).Format("2006-01-02"), prices.lastStart)
}

func TestSyncSymbol_NoTradesIsNoOp(t *testing.T) {
	service, _ := newSyncService(t, &fakeTradeSource{trades: map[string][]domain.Trade{}}, &fakePriceSource{})

	rows, err := service.SyncSymbol("9999")
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
}

func TestSyncSymbol_UpToDateSkipsFetch(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	trades := &fakeTradeSource{trades: map[string][]domain.Trade{
		"2330": {{ID: 1, Symbol: "2330", TradeDate: time.Now().UTC().AddDate(0, 0, -30), Shares: 10, TotalPrice: 100}},
	}}
	prices := &fakePriceSource{}

	service, repo := newSyncService(t, trades, prices)
	require.NoError(t, repo.Upsert(domain.DailyStat{Symbol: "2330", Date: today, TotalCost: 100, TotalValue: 110}))

	rows, err := service.SyncSymbol("2330")
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
	assert.Equal(t, 0, prices.calls)
}

func TestSyncSymbol_NormalizesSymbolKey(t *testing.T) {
	tradeDate := time.Now().UTC().AddDate(0, 0, -2)
	trades := &fakeTradeSource{trades: map[string][]domain.Trade{
		"2330.TW": {{ID: 1, Symbol: "2330.TW", TradeDate: tradeDate, Shares: 100, TotalPrice: 1000}},
	}}
	prices := &fakePriceSource{points: map[string][]domain.PricePoint{
		"2330.TW": {{Date: tradeDate, Close: 11}},
	}}

	service, repo := newSyncService(t, trades, prices)

	// A lowercase request symbol must land in the same series the cron
	// sync writes, not a second one keyed by the raw casing.
	rows, err := service.SyncSymbol("2330.tw")
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	stats, err := repo.GetBySymbol("2330.TW")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "2330.TW", stats[0].Symbol)

	lower, err := repo.GetBySymbol("2330.tw")
	require.NoError(t, err)
	assert.Empty(t, lower)
}

func TestRebuildSymbol_NormalizesSymbolKey(t *testing.T) {
	tradeDate := time.Now().UTC().AddDate(0, 0, -2)
	trades := &fakeTradeSource{trades: map[string][]domain.Trade{
		"2330.TW": {{ID: 1, Symbol: "2330.TW", TradeDate: tradeDate, Shares: 100, TotalPrice: 1000}},
	}}
	prices := &fakePriceSource{points: map[string][]domain.PricePoint{
		"2330.TW": {{Date: tradeDate, Close: 11}},
	}}

	service, repo := newSyncService(t, trades, prices)
	require.NoError(t, repo.Upsert(domain.DailyStat{
		Symbol: "2330.TW", Date: tradeDate.Format("2006-01-02"), TotalCost: 999, TotalValue: 999,
	}))

	rows, err := service.RebuildSymbol(" 2330.tw ")
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	// The stale row was dropped, not orphaned under another casing.
	stats, err := repo.GetBySymbol("2330.TW")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.InDelta(t, 1000, stats[0].TotalCost, 1e-9)
}

func TestSummarize(t *testing.T) {
	service, repo := newSyncService(t, &fakeTradeSource{}, &fakePriceSource{})

	require.NoError(t, repo.UpsertBatch([]domain.DailyStat{
		{Symbol: "2330", Date: "2024-02-01", TotalCost: 1000, TotalValue: 1000},
		{Symbol: "2330", Date: "2024-02-02", TotalCost: 1000, TotalValue: 1100},
		{Symbol: "2330", Date: "2024-02-03", TotalCost: 1000, TotalValue: 1045},
	}))

	summary, err := service.Summarize("2330")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "2024-02-01", summary.FirstDate)
	assert.Equal(t, "2024-02-03", summary.LastDate)
	assert.InDelta(t, 1045, summary.LatestValue, 1e-9)
	assert.InDelta(t, 1000, summary.MinValue, 1e-9)
	assert.InDelta(t, 1100, summary.MaxValue, 1e-9)
	// Returns: +10%, -5%; mean 2.5%.
	assert.InDelta(t, 0.025, summary.MeanDailyReturn, 1e-9)
	assert.Greater(t, summary.Volatility, 0.0)
}

func TestSummarize_EmptySeriesReturnsNil(t *testing.T) {
	service, _ := newSyncService(t, &fakeTradeSource{}, &fakePriceSource{})

	summary, err := service.Summarize("9999")
	require.NoError(t, err)
	assert.Nil(t, summary)
}
