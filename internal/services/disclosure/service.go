// Package disclosure locates the latest earnings-summary filing for a ticker on EDINET
package disclosure

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// tokyoLocation sets the registry's calendar day.
var tokyoLocation = mustLoadLocation("Asia/Tokyo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to JST fixed zone if tzdata is unavailable (e.g., minimal container)
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// ScanPolicy bounds the day-by-day search.
type ScanPolicy struct {
	WindowDays     int
	RequestTimeout time.Duration
	RequestDelay   time.Duration // pause before every request; 0 disables pacing
	Marker         string
	DocumentType   int
}

// DefaultScanPolicy matches the public registry's expectations.
func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{
		WindowDays:     30,
		RequestTimeout: 15 * time.Second,
		RequestDelay:   500 * time.Millisecond,
		Marker:         "決算短信",
		DocumentType:   2,
	}
}

// PolicyFromConfig builds a ScanPolicy from configuration.
func PolicyFromConfig(d common.DisclosureConfig, e common.EDINETConfig) ScanPolicy {
	p := DefaultScanPolicy()
	if d.WindowDays > 0 {
		p.WindowDays = d.WindowDays
	}
	if d.Marker != "" {
		p.Marker = d.Marker
	}
	if d.DocumentType > 0 {
		p.DocumentType = d.DocumentType
	}
	p.RequestDelay = d.GetRequestDelay()
	p.RequestTimeout = e.GetTimeout()
	return p
}

// Pacer spaces out requests. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter allowing one request per delay.
func NewPacer(delay time.Duration) Pacer {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Service implements DisclosureService
type Service struct {
	client interfaces.EDINETClient
	policy ScanPolicy
	pacer  Pacer
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a new disclosure service
func NewService(client interfaces.EDINETClient, policy ScanPolicy, logger *common.Logger) *Service {
	return &Service{
		client: client,
		policy: policy,
		pacer:  NewPacer(policy.RequestDelay),
		logger: logger,
		now:    time.Now,
	}
}

// Find scans WindowDays calendar days from today backwards. A 403 at any point
// ends the scan as Blocked; any other failure only skips that day.
func (s *Service) Find(ctx context.Context, ticker models.TickerCode) (models.FilingSearch, error) {
	code, err := models.ParseTicker(string(ticker))
	if err != nil {
		return models.FilingSearch{}, err
	}
	full := string(code.Full())

	today := s.now().In(tokyoLocation)
	s.logger.Info().Str("ticker", full).Int("window_days", s.policy.WindowDays).Msg("Searching filings")

	for day := 0; day < s.policy.WindowDays; day++ {
		date := today.AddDate(0, 0, -day)
		scanned := day + 1

		index, err := s.listDay(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return models.FilingSearch{}, ctx.Err()
			}
			if isForbidden(err) {
				s.logger.Warn().Str("ticker", full).Str("date", date.Format("2006-01-02")).Msg("Filing index refused request")
				return models.FilingSearch{Status: models.FilingBlocked, DaysScanned: scanned}, nil
			}
			s.logger.Debug().Err(err).Str("date", date.Format("2006-01-02")).Msg("Filing index unavailable, skipping day")
			continue
		}

		record, ok := matchFiling(index.Results, full, s.policy.Marker)
		if !ok {
			continue
		}

		content, err := s.download(ctx, record.DocID)
		if err != nil {
			if ctx.Err() != nil {
				return models.FilingSearch{}, ctx.Err()
			}
			if isForbidden(err) {
				s.logger.Warn().Str("doc_id", record.DocID).Msg("Filing download refused request")
				return models.FilingSearch{Status: models.FilingBlocked, DaysScanned: scanned}, nil
			}
			s.logger.Warn().Err(err).Str("doc_id", record.DocID).Msg("Filing download failed, skipping day")
			continue
		}

		s.logger.Info().Str("ticker", full).Str("doc_id", record.DocID).Int("days_scanned", scanned).Msg("Filing found")
		return models.FilingSearch{
			Status: models.FilingFound,
			Document: &models.FilingDocument{
				DocID:       record.DocID,
				Description: record.DocDescription,
				Date:        date,
				Content:     content,
			},
			DaysScanned: scanned,
		}, nil
	}

	s.logger.Info().Str("ticker", full).Msg("No filing in window")
	return models.FilingSearch{Status: models.FilingNotFound, DaysScanned: s.policy.WindowDays}, nil
}

func (s *Service) listDay(ctx context.Context, date time.Time) (*models.FilingIndex, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	index, err := s.client.ListDocuments(reqCtx, date)
	if err != nil {
		return nil, err
	}
	if index == nil {
		return &models.FilingIndex{}, nil
	}
	return index, nil
}

func (s *Service) download(ctx context.Context, docID string) ([]byte, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	return s.client.GetDocument(reqCtx, docID, s.policy.DocumentType)
}

func (s *Service) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.policy.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.policy.RequestTimeout)
}

// matchFiling returns the first record, in upstream order, filed under code
// whose description carries the marker.
func matchFiling(records []models.FilingRecord, code, marker string) (models.FilingRecord, bool) {
	for _, r := range records {
		if strings.Contains(r.SecCode, code) && strings.Contains(r.DocDescription, marker) {
			return r, true
		}
	}
	return models.FilingRecord{}, false
}

func isForbidden(err error) bool {
	var se interface{ HTTPStatus() int }
	return errors.As(err, &se) && se.HTTPStatus() == http.StatusForbidden
}

// Ensure Service implements DisclosureService
var _ interfaces.DisclosureService = (*Service)(nil)
