// Package yahoo provides a client for the Yahoo Finance public JSON endpoints
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second

	quoteModules = "price,summaryDetail,defaultKeyStatistics"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response
type APIError struct {
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo Finance error: status %d (endpoint: %s)", e.StatusCode, e.Endpoint)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Dur("elapsed", elapsed).Msg("Yahoo request failed")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo non-OK response")
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path}
	}

	c.logger.Debug().Str("path", path).Dur("elapsed", elapsed).Msg("Yahoo API call")

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// rawValue is the {"raw": 1.23, "fmt": "1.23"} wrapper quoteSummary uses for numbers.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) ptr() *float64 {
	if v == nil || v.Raw == nil || math.IsNaN(*v.Raw) {
		return nil
	}
	f := *v.Raw
	return &f
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				Symbol             string    `json:"symbol"`
				LongName           string    `json:"longName"`
				ShortName          string    `json:"shortName"`
				Currency           string    `json:"currency"`
				RegularMarketPrice *rawValue `json:"regularMarketPrice"`
				MarketCap          *rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail *struct {
				TrailingPE    *rawValue `json:"trailingPE"`
				DividendYield *rawValue `json:"dividendYield"`
				MarketCap     *rawValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				PriceToBook *rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// GetQuote retrieves quote and fundamental fields. Absent fields stay nil.
// When quoteSummary is refused (it wants a crumb cookie) the name and price
// are taken from the chart endpoint's meta block instead.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quote, err := c.quoteSummary(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	quote, metaErr := c.chartMetaQuote(ctx, symbol)
	if metaErr != nil {
		c.logger.Debug().Str("symbol", symbol).Str("error", metaErr.Error()).Msg("Chart meta fallback failed")
		return nil, err
	}
	c.logger.Info().Str("symbol", symbol).Str("reason", err.Error()).Msg("Quote filled from chart meta")
	return quote, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("modules", quoteModules)

	var resp quoteSummaryResponse
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("quoteSummary %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	r := resp.QuoteSummary.Result[0]
	quote := &models.Quote{Symbol: models.StringPtr(symbol)}

	if p := r.Price; p != nil {
		if p.Symbol != "" {
			quote.Symbol = models.StringPtr(p.Symbol)
		}
		switch {
		case p.LongName != "":
			quote.Name = models.StringPtr(p.LongName)
		case p.ShortName != "":
			quote.Name = models.StringPtr(p.ShortName)
		}
		if p.Currency != "" {
			quote.Currency = models.StringPtr(p.Currency)
		}
		quote.CurrentPrice = p.RegularMarketPrice.ptr()
		quote.MarketCap = p.MarketCap.ptr()
	}
	if d := r.SummaryDetail; d != nil {
		quote.TrailingPE = d.TrailingPE.ptr()
		quote.DividendYield = d.DividendYield.ptr()
		if quote.MarketCap == nil {
			quote.MarketCap = d.MarketCap.ptr()
		}
	}
	if k := r.DefaultKeyStatistics; k != nil {
		quote.PriceToBook = k.PriceToBook.ptr()
	}

	return quote, nil
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	LongName           string   `json:"longName"`
	ShortName          string   `json:"shortName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta       chartMeta `json:"meta"`
			Timestamp  []int64   `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// chartMetaQuote builds a partial quote (symbol, name, currency, price) from
// the chart endpoint, which does not need a crumb. Fundamentals stay nil.
func (c *Client) chartMetaQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	m := resp.Chart.Result[0].Meta
	quote := &models.Quote{Symbol: models.StringPtr(symbol)}
	if m.Symbol != "" {
		quote.Symbol = models.StringPtr(m.Symbol)
	}
	switch {
	case m.LongName != "":
		quote.Name = models.StringPtr(m.LongName)
	case m.ShortName != "":
		quote.Name = models.StringPtr(m.ShortName)
	}
	if m.Currency != "" {
		quote.Currency = models.StringPtr(m.Currency)
	}
	if m.RegularMarketPrice != nil && !math.IsNaN(*m.RegularMarketPrice) && !math.IsInf(*m.RegularMarketPrice, 0) {
		quote.CurrentPrice = models.FloatPtr(*m.RegularMarketPrice)
	}
	if quote.Name == nil && quote.CurrentPrice == nil {
		return nil, fmt.Errorf("chart meta for %s has no name or price", symbol)
	}
	return quote, nil
}

// GetHistory retrieves daily closes. Null closes (halts, holidays) are skipped.
func (c *Client) GetHistory(ctx context.Context, symbol, period, interval string) (models.PriceHistory, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return models.PriceHistory{}, nil
	}
	closes := r.Indicators.Quote[0].Close

	history := make(models.PriceHistory, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil || math.IsNaN(*closes[i]) {
			continue
		}
		history = append(history, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	return history, nil
}

// newsEntry covers both shapes the search endpoint has returned: flat
// fields, or the same data nested under "content".
type newsEntry struct {
	Title               string `json:"title"`
	Link                string `json:"link"`
	Publisher           string `json:"publisher"`
	ProviderPublishTime int64  `json:"providerPublishTime"`
	Content             *struct {
		Title        string `json:"title"`
		PubDate      string `json:"pubDate"`
		CanonicalURL *struct {
			URL string `json:"url"`
		} `json:"canonicalUrl"`
		ClickThroughURL *struct {
			URL string `json:"url"`
		} `json:"clickThroughUrl"`
		Provider *struct {
			DisplayName string `json:"displayName"`
		} `json:"provider"`
	} `json:"content"`
}

type searchResponse struct {
	News []newsEntry `json:"news"`
}

func (e newsEntry) toModel() models.NewsItem {
	var item models.NewsItem
	if e.Title != "" {
		item.Title = models.StringPtr(e.Title)
	}
	if e.Link != "" {
		item.Link = models.StringPtr(e.Link)
	}
	if e.Publisher != "" {
		item.Publisher = models.StringPtr(e.Publisher)
	}
	if e.ProviderPublishTime > 0 {
		item.PublishedAt = models.TimePtr(time.Unix(e.ProviderPublishTime, 0).UTC())
	}

	if ct := e.Content; ct != nil {
		if item.Title == nil && ct.Title != "" {
			item.Title = models.StringPtr(ct.Title)
		}
		if item.Link == nil {
			switch {
			case ct.CanonicalURL != nil && ct.CanonicalURL.URL != "":
				item.Link = models.StringPtr(ct.CanonicalURL.URL)
			case ct.ClickThroughURL != nil && ct.ClickThroughURL.URL != "":
				item.Link = models.StringPtr(ct.ClickThroughURL.URL)
			}
		}
		if item.Publisher == nil && ct.Provider != nil && ct.Provider.DisplayName != "" {
			item.Publisher = models.StringPtr(ct.Provider.DisplayName)
		}
		if item.PublishedAt == nil && ct.PubDate != "" {
			if t, err := time.Parse(time.RFC3339, ct.PubDate); err == nil {
				item.PublishedAt = models.TimePtr(t.UTC())
			}
		}
	}
	return item
}

// GetNews retrieves up to limit recent headlines for symbol.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", symbol)
	params.Set("quotesCount", "0")
	params.Set("newsCount", fmt.Sprint(limit))

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.News))
	for _, e := range resp.News {
		items = append(items, e.toModel())
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
