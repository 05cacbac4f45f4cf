// Package interfaces defines service contracts for kessan
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/kessan/internal/models"
)

// EDINETClient provides access to the disclosure registry API
type EDINETClient interface {
	// ListDocuments retrieves the per-day index of filings (all issuers).
	ListDocuments(ctx context.Context, date time.Time) (*models.FilingIndex, error)

	// GetDocument downloads a filing's binary content.
	GetDocument(ctx context.Context, docID string, docType int) ([]byte, error)
}

// MarketDataClient provides quote, history and news for a market symbol
type MarketDataClient interface {
	// GetQuote retrieves quote and fundamental fields
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetHistory retrieves closing prices for a range such as "6mo" at an interval such as "1d"
	GetHistory(ctx context.Context, symbol, period, interval string) (models.PriceHistory, error)

	// GetNews retrieves recent headlines
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// BoardClient scrapes investor message-board posts for a ticker
type BoardClient interface {
	GetPosts(ctx context.Context, code string, limit int) ([]string, error)
}

// TextGenerator sends a single prompt to a hosted model and returns its text.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier in use
	Model() string
}
