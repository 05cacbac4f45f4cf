package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// --- Mocks ---

type mockSnapshotService struct {
	snap *models.Snapshot
	err  error
}

func (m *mockSnapshotService) Fetch(_ context.Context, ticker models.TickerCode) (*models.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

type mockDisclosureService struct {
	result models.FilingSearch
	err    error
}

func (m *mockDisclosureService) Find(_ context.Context, _ models.TickerCode) (models.FilingSearch, error) {
	return m.result, m.err
}

type mockAnalysisService struct {
	report    *models.Report
	sentiment *models.SentimentReport
	err       error
	got       interfaces.AnalysisRequest
}

func (m *mockAnalysisService) Run(_ context.Context, req interfaces.AnalysisRequest) (*models.Report, error) {
	m.got = req
	return m.report, m.err
}

func (m *mockAnalysisService) BoardSentiment(_ context.Context, _ string) (*models.SentimentReport, error) {
	return m.sentiment, m.err
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func sampleSnapshot() *models.Snapshot {
	d := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Ticker: "7203",
		Symbol: "7203.T",
		Quote: models.Quote{
			Name:         models.StringPtr("Toyota Motor Corporation"),
			CurrentPrice: models.FloatPtr(2845.5),
		},
		History: models.PriceHistory{{Date: d, Close: 2800}, {Date: d.AddDate(0, 0, 1), Close: 2856}},
		News: []models.NewsItem{
			{Title: models.StringPtr("Toyota raises guidance"), Link: models.StringPtr("https://example.com/n1"), Publisher: models.StringPtr("Reuters")},
			{Link: models.StringPtr("https://example.com/n2")},
		},
	}
}

func TestHandleGetVersion(t *testing.T) {
	text := resultText(t, callTool(t, handleGetVersion("gemini-2.5-flash"), nil))
	assert.Contains(t, text, "Version:")
	assert.Contains(t, text, "gemini-2.5-flash")

	text = resultText(t, callTool(t, handleGetVersion(""), nil))
	assert.Contains(t, text, "(not configured)")
}

func TestHandleGetStockSnapshot(t *testing.T) {
	handler := handleGetStockSnapshot(&mockSnapshotService{snap: sampleSnapshot()}, common.NewSilentLogger())
	result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Toyota Motor Corporation (7203.T)")
	assert.Contains(t, text, "| Price | 2,845.5 |")
	assert.Contains(t, text, "| P/E (trailing) | --- |")
	assert.Contains(t, text, "+2.00%")
	assert.Contains(t, text, "[Toyota raises guidance](https://example.com/n1) (Reuters)")
	assert.Contains(t, text, "[(タイトルなし)](https://example.com/n2)")
}

func TestHandleGetStockSnapshot_MissingTicker(t *testing.T) {
	handler := handleGetStockSnapshot(&mockSnapshotService{}, common.NewSilentLogger())
	result := callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "ticker parameter is required")
}

func TestHandleFindDisclosure_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		result models.FilingSearch
		want   string
	}{
		{
			name: "found",
			result: models.FilingSearch{Status: models.FilingFound, Document: &models.FilingDocument{
				DocID: "X1", Description: "決算短信", Date: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), Content: []byte("1234"),
			}},
			want: "**Document ID:** X1",
		},
		{name: "blocked", result: models.FilingSearch{Status: models.FilingBlocked}, want: "**Status:** blocked"},
		{name: "not found", result: models.FilingSearch{Status: models.FilingNotFound, DaysScanned: 30}, want: "last 30 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handleFindDisclosure(&mockDisclosureService{result: tt.result}, common.NewSilentLogger())
			result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
			require.False(t, result.IsError)
			text := resultText(t, result)
			assert.Contains(t, text, "72030")
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestHandleFindDisclosure_Error(t *testing.T) {
	handler := handleFindDisclosure(&mockDisclosureService{err: context.Canceled}, common.NewSilentLogger())
	result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
	assert.True(t, result.IsError)
}

func TestHandleAnalyzeStock_Defaults(t *testing.T) {
	svc := &mockAnalysisService{report: &models.Report{
		Ticker:      "7203",
		Snapshot:    sampleSnapshot(),
		PDFSource:   models.PDFSourceRegistry,
		PDF:         &models.PDFText{Text: "売上高", Pages: 2},
		Narrative:   "**強気**",
		Messages:    []string{"EDINETから決算短信を取得しました"},
		GeneratedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}}
	handler := handleAnalyzeStock(svc, common.NewSilentLogger())

	result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
	require.False(t, result.IsError)
	assert.True(t, svc.got.AutoDisclosure)
	assert.True(t, svc.got.Narrate)

	text := resultText(t, result)
	assert.Contains(t, text, "**PDF Source:** edinet")
	assert.Contains(t, text, "> EDINETから決算短信を取得しました")
	assert.Contains(t, text, "2 pages, 3 characters")
	assert.True(t, strings.HasSuffix(text, "## Commentary\n\n**強気**\n"))
}

func TestHandleAnalyzeStock_Flags(t *testing.T) {
	svc := &mockAnalysisService{report: &models.Report{Ticker: "7203"}}
	handler := handleAnalyzeStock(svc, common.NewSilentLogger())

	callTool(t, handler, map[string]interface{}{"ticker": "7203", "auto_disclosure": false, "narrate": false})
	assert.False(t, svc.got.AutoDisclosure)
	assert.False(t, svc.got.Narrate)
}

func TestHandleAnalyzeStock_Error(t *testing.T) {
	handler := handleAnalyzeStock(&mockAnalysisService{err: models.ErrEmptyTicker}, common.NewSilentLogger())
	result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
	assert.True(t, result.IsError)
}

func TestHandleBoardSentiment(t *testing.T) {
	svc := &mockAnalysisService{sentiment: &models.SentimentReport{
		Ticker: "7203", PostCount: 12, Narrative: "中立", Messages: []string{"note"},
	}}
	handler := handleBoardSentiment(svc, common.NewSilentLogger())

	text := resultText(t, callTool(t, handler, map[string]interface{}{"ticker": "7203"}))
	assert.Contains(t, text, "**Posts read:** 12")
	assert.Contains(t, text, "> note")
	assert.Contains(t, text, "中立")
}

func TestHandleBoardSentiment_Error(t *testing.T) {
	handler := handleBoardSentiment(&mockAnalysisService{err: errors.New("boom")}, common.NewSilentLogger())
	result := callTool(t, handler, map[string]interface{}{"ticker": "7203"})
	assert.True(t, result.IsError)
}

func TestFormatSnapshot_NoHistoryOrNews(t *testing.T) {
	text := formatSnapshot(&models.Snapshot{Symbol: "9999.T"})
	assert.Contains(t, text, "# --- (9999.T)")
	assert.Contains(t, text, "No price history available.")
	assert.Contains(t, text, "No news available.")
}
