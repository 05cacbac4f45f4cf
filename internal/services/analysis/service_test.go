package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// --- Mocks ---

type mockSnapshots struct {
	snap *models.Snapshot
	err  error
}

func (m *mockSnapshots) Fetch(_ context.Context, ticker models.TickerCode) (*models.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.snap != nil {
		return m.snap, nil
	}
	return &models.Snapshot{Ticker: ticker}, nil
}

type mockDisclosure struct {
	result models.FilingSearch
	err    error
	calls  int
}

func (m *mockDisclosure) Find(_ context.Context, _ models.TickerCode) (models.FilingSearch, error) {
	m.calls++
	return m.result, m.err
}

type mockExtractor struct {
	text *models.PDFText
	err  error
	got  []byte
}

func (m *mockExtractor) Extract(data []byte) (*models.PDFText, error) {
	m.got = data
	return m.text, m.err
}

type mockNarrative struct {
	gotPDF    *models.PDFText
	generated int
	posts     []string
}

func (m *mockNarrative) Generate(_ context.Context, _ models.Quote, _ []models.NewsItem, pdf *models.PDFText) string {
	m.generated++
	m.gotPDF = pdf
	return "narrative"
}

func (m *mockNarrative) Sentiment(_ context.Context, _ models.TickerCode, posts []string) string {
	m.posts = posts
	return "sentiment"
}

type mockBoard struct {
	posts []string
	err   error
	limit int
}

func (m *mockBoard) GetPosts(_ context.Context, _ string, limit int) ([]string, error) {
	m.limit = limit
	return m.posts, m.err
}

type fixture struct {
	snapshots  *mockSnapshots
	disclosure *mockDisclosure
	extractor  *mockExtractor
	narrative  *mockNarrative
	board      *mockBoard
	svc        *Service
}

func newFixture() *fixture {
	f := &fixture{
		snapshots:  &mockSnapshots{},
		disclosure: &mockDisclosure{},
		extractor:  &mockExtractor{text: &models.PDFText{Text: "売上高", Pages: 1}},
		narrative:  &mockNarrative{},
		board:      &mockBoard{},
	}
	f.svc = NewService(f.snapshots, f.disclosure, f.extractor, f.narrative, f.board, 30, common.NewSilentLogger())
	f.svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestRun_EmptyTicker(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: " "})
	assert.ErrorIs(t, err, models.ErrEmptyTicker)
}

func TestRun_UploadedPDFSkipsRegistry(t *testing.T) {
	f := newFixture()
	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{
		Ticker:         "7203",
		UploadedPDF:    []byte("%PDF"),
		UploadedName:   "tanshin.pdf",
		AutoDisclosure: true,
		Narrate:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.disclosure.calls)
	assert.Equal(t, []byte("%PDF"), f.extractor.got)
	assert.Equal(t, models.PDFSourceUpload, report.PDFSource)
	assert.Equal(t, "tanshin.pdf", report.PDFName)
	assert.Equal(t, "narrative", report.Narrative)
	require.NotNil(t, f.narrative.gotPDF)
	assert.Equal(t, "売上高", f.narrative.gotPDF.Text)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestRun_RegistryFound(t *testing.T) {
	f := newFixture()
	f.disclosure.result = models.FilingSearch{
		Status: models.FilingFound,
		Document: &models.FilingDocument{
			DocID:       "X1",
			Description: "決算短信",
			Date:        time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC),
			Content:     []byte("%PDF-X1"),
		},
	}

	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", AutoDisclosure: true, Narrate: true})
	require.NoError(t, err)
	assert.Equal(t, models.PDFSourceRegistry, report.PDFSource)
	assert.Equal(t, []byte("%PDF-X1"), f.extractor.got)
	require.NotNil(t, report.Filing)
	assert.True(t, report.Filing.Found())
	assert.Contains(t, report.Messages[0], "2026-10-12")
}

func TestRun_RegistryBlockedIsDistinctFromNotFound(t *testing.T) {
	f := newFixture()
	f.disclosure.result = models.FilingSearch{Status: models.FilingBlocked, DaysScanned: 2}

	blocked, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", AutoDisclosure: true})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgFilingBlocked}, blocked.Messages)

	f.disclosure.result = models.FilingSearch{Status: models.FilingNotFound, DaysScanned: 30}
	missing, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", AutoDisclosure: true})
	require.NoError(t, err)
	require.Len(t, missing.Messages, 1)
	assert.Contains(t, missing.Messages[0], "30日間")
	assert.NotEqual(t, blocked.Messages, missing.Messages)

	assert.Nil(t, f.extractor.got)
	assert.Equal(t, models.PDFSourceNone, missing.PDFSource)
}

func TestRun_DisclosureContextError(t *testing.T) {
	f := newFixture()
	f.disclosure.err = context.Canceled

	_, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", AutoDisclosure: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoPDFProvided(t *testing.T) {
	f := newFixture()
	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", Narrate: true})
	require.NoError(t, err)

	assert.Nil(t, report.PDF)
	assert.Equal(t, []string{MsgNoPDF}, report.Messages)
	assert.Nil(t, f.narrative.gotPDF)
	assert.Equal(t, 1, f.narrative.generated)
}

func TestRun_EmptyPDFTextIsReportedButSkipped(t *testing.T) {
	f := newFixture()
	f.extractor.text = &models.PDFText{Text: "", Pages: 4}

	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{
		Ticker: "7203", UploadedPDF: []byte("%PDF"), UploadedName: "scan.pdf", Narrate: true,
	})
	require.NoError(t, err)

	require.NotNil(t, report.PDF, "an empty PDF is still a provided PDF")
	assert.True(t, report.PDF.Empty())
	assert.Contains(t, report.Messages, MsgPDFNoText)
	assert.NotContains(t, report.Messages, MsgNoPDF)
	assert.Nil(t, f.narrative.gotPDF)
}

func TestRun_UnreadablePDF(t *testing.T) {
	f := newFixture()
	f.extractor.text = nil
	f.extractor.err = errors.New("bad xref")

	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", UploadedPDF: []byte("junk"), Narrate: true})
	require.NoError(t, err)
	assert.Nil(t, report.PDF)
	assert.Contains(t, report.Messages[len(report.Messages)-1], "bad xref")
	assert.Equal(t, "narrative", report.Narrative)
}

func TestRun_SnapshotFailureDegrades(t *testing.T) {
	f := newFixture()
	f.snapshots.err = errors.New("provider down")

	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203", Narrate: true})
	require.NoError(t, err)
	require.NotNil(t, report.Snapshot)
	assert.True(t, report.Snapshot.Quote.IsEmpty())
	assert.Equal(t, "narrative", report.Narrative)
}

func TestRun_NarrateFalseSkipsModel(t *testing.T) {
	f := newFixture()
	report, err := f.svc.Run(context.Background(), interfaces.AnalysisRequest{Ticker: "7203"})
	require.NoError(t, err)
	assert.Empty(t, report.Narrative)
	assert.Equal(t, 0, f.narrative.generated)
}

func TestBoardSentiment(t *testing.T) {
	f := newFixture()
	f.board.posts = []string{"強気", "弱気"}

	report, err := f.svc.BoardSentiment(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, 2, report.PostCount)
	assert.Equal(t, "sentiment", report.Narrative)
	assert.Equal(t, 30, f.board.limit)
	assert.Equal(t, []string{"強気", "弱気"}, f.narrative.posts)
}

func TestBoardSentiment_FetchFailure(t *testing.T) {
	f := newFixture()
	f.board.err = errors.New("status 503")

	report, err := f.svc.BoardSentiment(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, 0, report.PostCount)
	require.Len(t, report.Messages, 1)
	assert.Contains(t, report.Messages[0], "status 503")
	assert.Equal(t, "sentiment", report.Narrative)
}

func TestBoardSentiment_EmptyTicker(t *testing.T) {
	f := newFixture()
	_, err := f.svc.BoardSentiment(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrEmptyTicker)
}
