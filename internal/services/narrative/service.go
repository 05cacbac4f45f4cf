// Package narrative turns market data and filing text into model-written commentary
package narrative

import (
	"context"
	"fmt"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

const (
	DefaultMaxNews     = 5
	DefaultMaxPDFChars = 5000

	msgUnavailable    = "AI分析は利用できません（APIキーが設定されていません）。"
	msgFailed         = "AI分析に失敗しました: %v"
	msgNoPosts        = "掲示板の投稿を取得できなかったため、センチメント分析を行えませんでした。"
	msgSentimentError = "センチメント分析に失敗しました: %v"
)

// Options bounds how much context goes into a prompt.
type Options struct {
	MaxNews     int
	MaxPDFChars int
}

// OptionsFromConfig builds Options from configuration.
func OptionsFromConfig(c common.NarrativeConfig) Options {
	return Options{MaxNews: c.MaxNews, MaxPDFChars: c.MaxPDFChars}
}

// Service implements NarrativeService
type Service struct {
	generator interfaces.TextGenerator
	opts      Options
	logger    *common.Logger
}

// NewService creates a narrative service. generator may be nil when no API
// key is configured; every call then returns an explanatory message.
func NewService(generator interfaces.TextGenerator, opts Options, logger *common.Logger) *Service {
	if opts.MaxNews <= 0 {
		opts.MaxNews = DefaultMaxNews
	}
	if opts.MaxPDFChars <= 0 {
		opts.MaxPDFChars = DefaultMaxPDFChars
	}
	return &Service{
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Generate returns the model's commentary, or a readable failure message.
func (s *Service) Generate(ctx context.Context, quote models.Quote, news []models.NewsItem, pdf *models.PDFText) string {
	if s.generator == nil {
		return msgUnavailable
	}
	prompt := buildAnalysisPrompt(quote, news, pdf, s.opts.MaxNews, s.opts.MaxPDFChars)

	text, err := s.call(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Narrative generation failed")
		return fmt.Sprintf(msgFailed, err)
	}
	return text
}

// Sentiment summarises investor mood from board posts.
func (s *Service) Sentiment(ctx context.Context, ticker models.TickerCode, posts []string) string {
	if len(posts) == 0 {
		return msgNoPosts
	}
	if s.generator == nil {
		return msgUnavailable
	}

	text, err := s.call(ctx, buildSentimentPrompt(ticker, posts))
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker.String()).Msg("Sentiment generation failed")
		return fmt.Sprintf(msgSentimentError, err)
	}
	return text
}

// Available reports whether a model is configured.
func (s *Service) Available() bool {
	return s.generator != nil
}

// call converts a panic in the generator into an error.
func (s *Service) call(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during generation: %v", r)
		}
	}()

	s.logger.Debug().Str("model", s.generator.Model()).Int("prompt_chars", len([]rune(prompt))).Msg("Sending prompt")
	return s.generator.GenerateContent(ctx, prompt)
}

// Ensure Service implements NarrativeService
var _ interfaces.NarrativeService = (*Service)(nil)
