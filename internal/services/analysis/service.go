// Package analysis runs the fetch, extract and generate pipeline behind every surface
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// Messages shown alongside a report.
const (
	MsgUploaded       = "アップロードされたPDF「%s」を使用します。"
	MsgFilingFound    = "EDINETから決算短信を取得しました: %s（%s提出）"
	MsgFilingBlocked  = "EDINETへのアクセスが拒否されました（HTTP 403）。時間をおいて再試行するか、PDFを手動でアップロードしてください。"
	MsgFilingNotFound = "直近%d日間に決算短信が見つかりませんでした。期間を広げるか、PDFを手動でアップロードしてください。"
	MsgNoPDF          = "PDFが指定されていないため、株価データとニュースのみで分析します。"
	MsgPDFUnreadable  = "PDFを読み込めませんでした: %v"
	MsgPDFNoText      = "PDFからテキストを抽出できませんでした（画像のみのPDFの可能性があります）。PDFなしで分析します。"
	MsgBoardFailed    = "掲示板の取得に失敗しました: %v"
)

// Service implements AnalysisService
type Service struct {
	snapshots  interfaces.SnapshotService
	disclosure interfaces.DisclosureService
	extractor  interfaces.PDFExtractor
	narrative  interfaces.NarrativeService
	board      interfaces.BoardClient
	maxPosts   int
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates the analysis pipeline. board may be nil, in which case
// sentiment requests report that the board is unavailable.
func NewService(
	snapshots interfaces.SnapshotService,
	disclosure interfaces.DisclosureService,
	extractor interfaces.PDFExtractor,
	narrative interfaces.NarrativeService,
	board interfaces.BoardClient,
	maxPosts int,
	logger *common.Logger,
) *Service {
	return &Service{
		snapshots:  snapshots,
		disclosure: disclosure,
		extractor:  extractor,
		narrative:  narrative,
		board:      board,
		maxPosts:   maxPosts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one analysis. Stage failures become report messages; the
// error is non-nil only for an empty ticker or a cancelled context.
func (s *Service) Run(ctx context.Context, req interfaces.AnalysisRequest) (*models.Report, error) {
	code, err := models.ParseTicker(req.Ticker)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Ticker:    code,
		PDFSource: models.PDFSourceNone,
	}

	pdfBytes, err := s.resolvePDF(ctx, code, req, report)
	if err != nil {
		return nil, err
	}
	if pdfBytes != nil {
		s.extract(pdfBytes, report)
	}

	snap, err := s.snapshots.Fetch(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", code.String()).Msg("Snapshot failed")
		snap = &models.Snapshot{Ticker: code, History: models.PriceHistory{}, News: []models.NewsItem{}}
	}
	report.Snapshot = snap

	if req.Narrate {
		var pdf *models.PDFText
		if !report.PDF.Empty() {
			pdf = report.PDF
		}
		report.Narrative = s.narrative.Generate(ctx, snap.Quote, snap.News, pdf)
	}

	report.GeneratedAt = s.now()
	s.logger.Info().Str("ticker", code.String()).
		Str("pdf_source", string(report.PDFSource)).
		Bool("narrated", req.Narrate).
		Int("messages", len(report.Messages)).
		Msg("Analysis complete")

	return report, nil
}

// resolvePDF returns the uploaded bytes, or the registry filing when requested.
func (s *Service) resolvePDF(ctx context.Context, code models.TickerCode, req interfaces.AnalysisRequest, report *models.Report) ([]byte, error) {
	if len(req.UploadedPDF) > 0 {
		report.PDFSource = models.PDFSourceUpload
		report.PDFName = req.UploadedName
		report.AddMessage(fmt.Sprintf(MsgUploaded, req.UploadedName))
		return req.UploadedPDF, nil
	}

	if !req.AutoDisclosure || s.disclosure == nil {
		report.AddMessage(MsgNoPDF)
		return nil, nil
	}

	search, err := s.disclosure.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	report.Filing = &search

	switch search.Status {
	case models.FilingFound:
		doc := search.Document
		report.PDFSource = models.PDFSourceRegistry
		report.PDFName = doc.Description
		report.AddMessage(fmt.Sprintf(MsgFilingFound, doc.Description, doc.Date.Format("2006-01-02")))
		return doc.Content, nil
	case models.FilingBlocked:
		report.AddMessage(MsgFilingBlocked)
	default:
		report.AddMessage(fmt.Sprintf(MsgFilingNotFound, search.DaysScanned))
	}
	return nil, nil
}

func (s *Service) extract(data []byte, report *models.Report) {
	text, err := s.extractor.Extract(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", report.Ticker.String()).Msg("PDF extraction failed")
		report.AddMessage(fmt.Sprintf(MsgPDFUnreadable, err))
		return
	}
	report.PDF = text
	if text.Empty() {
		report.AddMessage(MsgPDFNoText)
	}
}

// BoardSentiment scrapes message-board posts and asks the model for the mood.
func (s *Service) BoardSentiment(ctx context.Context, ticker string) (*models.SentimentReport, error) {
	code, err := models.ParseTicker(ticker)
	if err != nil {
		return nil, err
	}

	report := &models.SentimentReport{Ticker: code}

	if s.board == nil {
		report.Messages = append(report.Messages, fmt.Sprintf(MsgBoardFailed, "board client not configured"))
	} else if posts, err := s.board.GetPosts(ctx, code.String(), s.maxPosts); err != nil {
		s.logger.Warn().Err(err).Str("ticker", code.String()).Msg("Board fetch failed")
		report.Messages = append(report.Messages, fmt.Sprintf(MsgBoardFailed, err))
	} else {
		report.Posts = posts
		report.PostCount = len(posts)
	}

	report.Narrative = s.narrative.Sentiment(ctx, code, report.Posts)
	report.GeneratedAt = s.now()
	return report, nil
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
