package snapshot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/models"
)

// --- Mocks ---

type mockMarketClient struct {
	quote      *models.Quote
	quoteErr   error
	history    models.PriceHistory
	historyErr error
	news       []models.NewsItem
	newsErr    error

	symbols []string
	period  string
	limit   int
}

func (m *mockMarketClient) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	m.symbols = append(m.symbols, symbol)
	return m.quote, m.quoteErr
}

func (m *mockMarketClient) GetHistory(_ context.Context, symbol, period, _ string) (models.PriceHistory, error) {
	m.symbols = append(m.symbols, symbol)
	m.period = period
	return m.history, m.historyErr
}

func (m *mockMarketClient) GetNews(_ context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	m.symbols = append(m.symbols, symbol)
	m.limit = limit
	return m.news, m.newsErr
}

func sampleHistory(n int) models.PriceHistory {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	h := make(models.PriceHistory, n)
	for i := range h {
		h[i] = models.PricePoint{Date: start.AddDate(0, 0, i), Close: 2800 + float64(i)}
	}
	return h
}

func TestFetch_AllParts(t *testing.T) {
	market := &mockMarketClient{
		quote:   &models.Quote{Name: models.StringPtr("Toyota"), CurrentPrice: models.FloatPtr(2845)},
		history: sampleHistory(3),
		news:    []models.NewsItem{{Title: models.StringPtr("headline")}},
	}
	svc := NewService(market, Options{NewsCount: 7}, common.NewSilentLogger())

	snap, err := svc.Fetch(context.Background(), " 7203 ")
	require.NoError(t, err)
	assert.Equal(t, "7203.T", snap.Symbol)
	assert.Equal(t, "Toyota", snap.Quote.DisplayName())
	assert.Len(t, snap.History, 3)
	assert.Len(t, snap.News, 1)
	assert.Equal(t, []string{"7203.T", "7203.T", "7203.T"}, market.symbols)
	assert.Equal(t, "6mo", market.period)
	assert.Equal(t, 7, market.limit)
}

func TestFetch_QuoteFailureKeepsNews(t *testing.T) {
	market := &mockMarketClient{
		quoteErr:   errors.New("quote down"),
		historyErr: errors.New("chart down"),
		news:       []models.NewsItem{{Title: models.StringPtr("still here")}},
	}
	svc := NewService(market, Options{}, common.NewSilentLogger())

	snap, err := svc.Fetch(context.Background(), "7203")
	require.NoError(t, err)
	assert.True(t, snap.Quote.IsEmpty())
	assert.Equal(t, "---", snap.Quote.DisplayPrice())
	assert.NotNil(t, snap.History)
	assert.Empty(t, snap.History)
	require.Len(t, snap.News, 1)
	assert.Equal(t, "still here", snap.News[0].DisplayTitle())
}

func TestFetch_NewsFailureKeepsQuote(t *testing.T) {
	market := &mockMarketClient{
		quote:   &models.Quote{CurrentPrice: models.FloatPtr(100)},
		history: sampleHistory(2),
		newsErr: errors.New("news down"),
	}
	svc := NewService(market, Options{}, common.NewSilentLogger())

	snap, err := svc.Fetch(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, "100.0", snap.Quote.DisplayPrice())
	assert.Len(t, snap.History, 2)
	assert.NotNil(t, snap.News)
	assert.Empty(t, snap.News)
}

func TestFetch_EmptyTicker(t *testing.T) {
	svc := NewService(&mockMarketClient{}, Options{}, common.NewSilentLogger())
	_, err := svc.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrEmptyTicker)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	opts := OptionsFromConfig(cfg.Clients.Yahoo)
	assert.Equal(t, ".T", opts.MarketSuffix)
	assert.Equal(t, "6mo", opts.HistoryRange)
	assert.Equal(t, "1d", opts.Interval)
	assert.Equal(t, 10, opts.NewsCount)
}

func TestRenderPriceChart(t *testing.T) {
	png, err := RenderPriceChart("7203.T", sampleHistory(30))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRenderPriceChart_TooFewPoints(t *testing.T) {
	_, err := RenderPriceChart("7203.T", sampleHistory(1))
	assert.Error(t, err)

	_, err = RenderPriceChart("7203.T", nil)
	assert.Error(t, err)
}
