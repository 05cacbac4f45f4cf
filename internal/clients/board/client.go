// Package board scrapes investor message-board posts from Yahoo! Finance Japan
package board

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
)

const (
	DefaultBaseURL      = "https://finance.yahoo.co.jp"
	DefaultPostSelector = "article p"
	DefaultTimeout      = 15 * time.Second
	DefaultMarketSuffix = ".T"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client implements the BoardClient interface
type Client struct {
	baseURL    string
	selector   string
	suffix     string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithPostSelector sets the CSS selector matching one post body
func WithPostSelector(selector string) ClientOption {
	return func(c *Client) {
		if selector != "" {
			c.selector = selector
		}
	}
}

// WithMarketSuffix sets the exchange suffix used in board URLs
func WithMarketSuffix(suffix string) ClientOption {
	return func(c *Client) {
		c.suffix = suffix
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new board scraper
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		selector: DefaultPostSelector,
		suffix:   DefaultMarketSuffix,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPosts returns up to limit non-empty, de-duplicated post bodies in page order.
func (c *Client) GetPosts(ctx context.Context, code string, limit int) ([]string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("empty ticker code")
	}

	reqURL := fmt.Sprintf("%s/quote/%s%s/bbs", c.baseURL, code, c.suffix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("code", code).Dur("elapsed", elapsed).Msg("Board request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("code", code).Int("status", resp.StatusCode).Msg("Board non-OK response")
		return nil, fmt.Errorf("board error: status %d for %s", resp.StatusCode, code)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse board HTML: %w", err)
	}

	posts := extractPosts(doc, c.selector, limit)
	c.logger.Debug().Str("code", code).Int("posts", len(posts)).Dur("elapsed", elapsed).Msg("Board scraped")
	return posts, nil
}

func extractPosts(doc *goquery.Document, selector string, limit int) []string {
	var posts []string
	seen := make(map[string]bool)

	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || seen[text] {
			return true
		}
		seen[text] = true
		posts = append(posts, text)
		return limit <= 0 || len(posts) < limit
	})

	return posts
}

// Ensure Client implements BoardClient
var _ interfaces.BoardClient = (*Client)(nil)
