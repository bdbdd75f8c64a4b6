// Package finmind provides market data fetching from the FinMind API
// (Taiwan market daily prices) with persistent caching.
package finmind

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yclin/stockfolio/internal/clientdata"
	"github.com/yclin/stockfolio/internal/domain"
	"github.com/yclin/stockfolio/internal/utils"
)

const datasetDailyPrice = "TaiwanStockPrice"

// quoteLookbackDays is how far back the quote fetch reaches. The market
// can be closed for several days in a row (long weekends, typhoon days),
// so a generous window guarantees at least two bars to diff.
const quoteLookbackDays = 10

// Config holds FinMind client configuration.
type Config struct {
	BaseURL  string
	Token    string        // Optional; unauthenticated requests get stricter rate limits
	QuoteTTL time.Duration // Quote cache freshness window; zero means the default
}

// Client for the FinMind data API.
type Client struct {
	baseURL   string
	token     string
	quoteTTL  time.Duration
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new FinMind client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.finmindtrade.com/api/v4/data"
	}

	quoteTTL := cfg.QuoteTTL
	if quoteTTL <= 0 {
		quoteTTL = clientdata.TTLQuote
	}

	return &Client{
		baseURL:   baseURL,
		token:     cfg.Token,
		quoteTTL:  quoteTTL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "finmind").Logger(),
		cacheRepo: cacheRepo,
	}
}

// apiResponse is the FinMind envelope.
type apiResponse struct {
	Msg    string   `json:"msg"`
	Status int      `json:"status"`
	Data   []apiBar `json:"data"`
}

// apiBar is one daily price row from the TaiwanStockPrice dataset.
type apiBar struct {
	Date    string  `json:"date"`
	StockID string  `json:"stock_id"`
	Open    float64 `json:"open"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Close   float64 `json:"close"`
}

// stockID strips an exchange suffix ("2330.TW" -> "2330"); FinMind keys
// on the bare Taiwan stock id.
func stockID(symbol string) string {
	return strings.SplitN(symbol, ".", 2)[0]
}

// GetQuote returns the latest close and day-over-day change for symbol.
// Returns (nil, nil) when the API has no data for the symbol: a missing
// price is a valid state, not an error.
//
// Responses are cached for a short window; when the API fails and a
// stale cache entry exists, the stale quote is served instead.
func (c *Client) GetQuote(symbol string) (*domain.Quote, error) {
	id := stockID(symbol)

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("finmind_quote", id)
		if err == nil && data != nil {
			var cached domain.Quote
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Float64("price", cached.Price).Msg("Cache hit")
				return &cached, nil
			}
		}
	}

	startDate := time.Now().UTC().AddDate(0, 0, -quoteLookbackDays).Format(utils.DateLayout)

	bars, err := c.fetchBars(id, startDate, "")
	if err != nil {
		if stale, ok := c.staleQuote(id); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("API failed, using stale cached quote")
			return stale, nil
		}
		return nil, err
	}

	quote := quoteFromBars(symbol, bars)
	if quote == nil {
		c.log.Debug().Str("symbol", symbol).Msg("No price data available")
		return nil, nil
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("finmind_quote", id, quote, c.quoteTTL); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	c.log.Info().
		Str("symbol", symbol).
		Float64("price", quote.Price).
		Float64("change_pct", quote.ChangePercent).
		Msg("Fetched quote")

	return quote, nil
}

// quoteFromBars derives a quote from daily bars. With a single bar the
// change is zero; with none there is no quote.
func quoteFromBars(symbol string, bars []apiBar) *domain.Quote {
	if len(bars) == 0 {
		return nil
	}

	latest := bars[len(bars)-1]
	quote := &domain.Quote{Symbol: symbol, Price: latest.Close}

	if len(bars) >= 2 {
		previous := bars[len(bars)-2]
		if previous.Close != 0 {
			quote.ChangeAmount = latest.Close - previous.Close
			quote.ChangePercent = (latest.Close - previous.Close) / previous.Close * 100
		}
	}

	return quote
}

// GetHistory returns daily closes for symbol in [startDate, endDate],
// both YYYY-MM-DD. An empty endDate means "through today".
func (c *Client) GetHistory(symbol, startDate, endDate string) ([]domain.PricePoint, error) {
	id := stockID(symbol)
	cacheKey := id + ":" + startDate + ":" + endDate

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("finmind_history", cacheKey)
		if err == nil && data != nil {
			var cached []domain.PricePoint
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Int("points", len(cached)).Msg("History cache hit")
				return cached, nil
			}
		}
	}

	bars, err := c.fetchBars(id, startDate, endDate)
	if err != nil {
		if stale, ok := c.staleHistory(cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, err
	}

	points := make([]domain.PricePoint, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse(utils.DateLayout, bar.Date)
		if err != nil {
			c.log.Warn().Str("date", bar.Date).Msg("Skipping bar with unparseable date")
			continue
		}
		points = append(points, domain.PricePoint{Date: date, Close: bar.Close})
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("finmind_history", cacheKey, points, clientdata.TTLHistory); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
		}
	}

	return points, nil
}

// fetchBars performs the API request. FinMind returns bars oldest first.
func (c *Client) fetchBars(id, startDate, endDate string) ([]apiBar, error) {
	params := url.Values{}
	params.Set("dataset", datasetDailyPrice)
	params.Set("data_id", id)
	params.Set("start_date", startDate)
	if endDate != "" {
		params.Set("end_date", endDate)
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	requestURL := c.baseURL + "?" + params.Encode()
	c.log.Debug().Str("stock_id", id).Str("start_date", startDate).Msg("Fetching price data")

	resp, err := c.client.Get(requestURL)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Status != 200 {
		return nil, fmt.Errorf("API error %d: %s", result.Status, result.Msg)
	}

	return result.Data, nil
}

func (c *Client) staleQuote(id string) (*domain.Quote, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get("finmind_quote", id)
	if err != nil || data == nil {
		return nil, false
	}

	var cached domain.Quote
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	return &cached, true
}

func (c *Client) staleHistory(cacheKey string) ([]domain.PricePoint, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get("finmind_history", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}

	var cached []domain.PricePoint
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	return cached, true
}
