// Package edinet provides a client for the EDINET disclosure registry API
package edinet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

const (
	DefaultBaseURL = "https://disclosure.edinet-fsa.go.jp/api/v1"
	DefaultTimeout = 15 * time.Second
	DefaultReferer = "https://disclosure.edinet-fsa.go.jp/"

	// IndexTypeWithMetadata asks the index for full document metadata.
	IndexTypeWithMetadata = 2
	// DocumentTypePDF selects the PDF rendition of a filing.
	DocumentTypePDF = 2

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client implements the EDINETClient interface
type Client struct {
	baseURL    string
	apiKey     string
	referer    string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the v2 Subscription-Key
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithReferer overrides the Referer header
func WithReferer(referer string) ClientOption {
	return func(c *Client) {
		c.referer = referer
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new EDINET client. The v1 API is public; v2 needs an API key.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		referer: DefaultReferer,
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

// APIError is returned for any non-200 response
type APIError struct {
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EDINET API error: status %d (endpoint: %s)", e.StatusCode, e.Endpoint)
}

// HTTPStatus returns the response status code
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// IsForbidden reports whether err is a 403 from the registry.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// do performs a GET and returns the open response body on 200.
func (c *Client) do(ctx context.Context, path string, params url.Values, accept string) (io.ReadCloser, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("Subscription-Key", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Dur("elapsed", elapsed).Msg("EDINET request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("EDINET non-OK response")
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: path}
	}

	c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("EDINET API call")
	return resp.Body, nil
}

// ListDocuments retrieves the index of filings submitted on date.
func (c *Client) ListDocuments(ctx context.Context, date time.Time) (*models.FilingIndex, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006-01-02"))
	params.Set("type", fmt.Sprint(IndexTypeWithMetadata))

	body, err := c.do(ctx, "/documents.json", params, "application/json")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var index models.FilingIndex
	if err := json.NewDecoder(body).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to decode document index: %w", err)
	}
	return &index, nil
}

// GetDocument downloads a filing. docType 2 returns the PDF.
func (c *Client) GetDocument(ctx context.Context, docID string, docType int) ([]byte, error) {
	if docID == "" {
		return nil, fmt.Errorf("empty document id")
	}

	params := url.Values{}
	params.Set("type", fmt.Sprint(docType))

	body, err := c.do(ctx, "/documents/"+url.PathEscape(docID), params, "application/pdf,*/*")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", docID, err)
	}
	return content, nil
}

// Ensure Client implements EDINETClient
var _ interfaces.EDINETClient = (*Client)(nil)
