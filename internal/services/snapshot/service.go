// Package snapshot fetches quote, price history and news for a ticker
package snapshot

import (
	"context"
	"time"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// Options controls what each sub-fetch asks the provider for.
type Options struct {
	MarketSuffix string
	HistoryRange string
	Interval     string
	NewsCount    int
}

// OptionsFromConfig builds Options from the market-data client configuration.
func OptionsFromConfig(c common.YahooConfig) Options {
	return Options{
		MarketSuffix: c.MarketSuffix,
		HistoryRange: c.HistoryRange,
		Interval:     c.Interval,
		NewsCount:    c.NewsCount,
	}
}

// Service implements SnapshotService
type Service struct {
	market interfaces.MarketDataClient
	opts   Options
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new snapshot service
func NewService(market interfaces.MarketDataClient, opts Options, logger *common.Logger) *Service {
	if opts.MarketSuffix == "" {
		opts.MarketSuffix = ".T"
	}
	if opts.HistoryRange == "" {
		opts.HistoryRange = "6mo"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	return &Service{
		market: market,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch runs the quote, history and news fetches one after another. A failed
// sub-fetch leaves its part empty and never affects the others.
func (s *Service) Fetch(ctx context.Context, ticker models.TickerCode) (*models.Snapshot, error) {
	code, err := models.ParseTicker(string(ticker))
	if err != nil {
		return nil, err
	}
	symbol := code.MarketSymbol(s.opts.MarketSuffix)

	snap := &models.Snapshot{
		Ticker:    code,
		Symbol:    symbol,
		History:   models.PriceHistory{},
		News:      []models.NewsItem{},
		FetchedAt: s.now(),
	}

	if quote, err := s.market.GetQuote(ctx, symbol); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed")
	} else if quote != nil {
		snap.Quote = *quote
	}

	if history, err := s.market.GetHistory(ctx, symbol, s.opts.HistoryRange, s.opts.Interval); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("History fetch failed")
	} else if history != nil {
		snap.History = history
	}

	if news, err := s.market.GetNews(ctx, symbol, s.opts.NewsCount); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("News fetch failed")
	} else if news != nil {
		snap.News = news
	}

	s.logger.Info().Str("symbol", symbol).
		Bool("quote", !snap.Quote.IsEmpty()).
		Int("history", len(snap.History)).
		Int("news", len(snap.News)).
		Msg("Snapshot fetched")

	return snap, nil
}

// Ensure Service implements SnapshotService
var _ interfaces.SnapshotService = (*Service)(nil)
