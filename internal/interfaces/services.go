package interfaces

import (
	"context"

	"github.com/bobmcallan/kessan/internal/models"
)

// DisclosureService locates the latest earnings-summary filing for a ticker
type DisclosureService interface {
	// Find scans the registry day by day. The error is non-nil only for an
	// empty ticker or a cancelled context; everything else is a FilingSearch status.
	Find(ctx context.Context, ticker models.TickerCode) (models.FilingSearch, error)
}

// SnapshotService fetches quote, history and news, each best-effort
type SnapshotService interface {
	Fetch(ctx context.Context, ticker models.TickerCode) (*models.Snapshot, error)
}

// PDFExtractor turns PDF bytes into page-ordered text
type PDFExtractor interface {
	Extract(data []byte) (*models.PDFText, error)
}

// NarrativeService builds prompts and returns model prose. Its methods never fail:
// errors come back as user-facing text.
type NarrativeService interface {
	Generate(ctx context.Context, quote models.Quote, news []models.NewsItem, pdf *models.PDFText) string
	Sentiment(ctx context.Context, ticker models.TickerCode, posts []string) string
}

// AnalysisService runs the full fetch -> extract -> generate pipeline
type AnalysisService interface {
	Run(ctx context.Context, req AnalysisRequest) (*models.Report, error)
	BoardSentiment(ctx context.Context, ticker string) (*models.SentimentReport, error)
}

// AnalysisRequest describes one analysis action.
type AnalysisRequest struct {
	Ticker         string
	UploadedPDF    []byte // nil when no file was uploaded
	UploadedName   string
	AutoDisclosure bool // search the registry when no file was uploaded
	Narrate        bool // call the model; false returns data only
}
