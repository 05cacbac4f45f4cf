package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FallbackDisplay is rendered in place of any quote or news field the provider omitted.
const FallbackDisplay = "---"

// Quote holds quote and fundamental fields. The provider may omit any of them,
// so every field is optional and read through a Display accessor.
type Quote struct {
	Symbol        *string  `json:"symbol,omitempty"`
	Name          *string  `json:"name,omitempty"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	TrailingPE    *float64 `json:"trailing_pe,omitempty"`
	PriceToBook   *float64 `json:"price_to_book,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"` // fraction, 0.025 = 2.5%
	MarketCap     *float64 `json:"market_cap,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
}

// IsEmpty reports whether no field was populated.
func (q Quote) IsEmpty() bool {
	return q.Symbol == nil && q.Name == nil && q.CurrentPrice == nil && q.TrailingPE == nil &&
		q.PriceToBook == nil && q.DividendYield == nil && q.MarketCap == nil
}

func (q Quote) DisplaySymbol() string {
	return stringOr(q.Symbol)
}

func (q Quote) DisplayName() string {
	return stringOr(q.Name)
}

func (q Quote) DisplayPrice() string {
	if !finite(q.CurrentPrice) {
		return FallbackDisplay
	}
	return groupThousands(*q.CurrentPrice, 1)
}

func (q Quote) DisplayPE() string {
	return floatOr(q.TrailingPE, "%.2f")
}

func (q Quote) DisplayPBR() string {
	return floatOr(q.PriceToBook, "%.2f")
}

// DisplayDividendYield renders the yield as a percentage.
func (q Quote) DisplayDividendYield() string {
	if !finite(q.DividendYield) {
		return FallbackDisplay
	}
	return fmt.Sprintf("%.2f%%", *q.DividendYield*100)
}

// DisplayMarketCap renders market capitalisation in 億円 / 兆円 units.
func (q Quote) DisplayMarketCap() string {
	if !finite(q.MarketCap) {
		return FallbackDisplay
	}
	v := *q.MarketCap
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2f兆円", v/1e12)
	case v >= 1e8:
		return groupThousands(v/1e8, 0) + "億円"
	default:
		return groupThousands(v, 0) + "円"
	}
}

// PricePoint is one closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceHistory is an ordered (oldest first) series of closing prices.
type PriceHistory []PricePoint

// Last returns the most recent point, if any.
func (h PriceHistory) Last() (PricePoint, bool) {
	if len(h) == 0 {
		return PricePoint{}, false
	}
	return h[len(h)-1], true
}

// NewsItem is a headline. Providers return heterogeneous shapes, so every field is optional.
type NewsItem struct {
	Title       *string    `json:"title,omitempty"`
	Link        *string    `json:"link,omitempty"`
	Publisher   *string    `json:"publisher,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// UntitledNews is shown for headlines without a title.
const UntitledNews = "(タイトルなし)"

func (n NewsItem) DisplayTitle() string {
	if n.Title == nil || strings.TrimSpace(*n.Title) == "" {
		return UntitledNews
	}
	return *n.Title
}

func (n NewsItem) DisplayPublisher() string {
	return stringOr(n.Publisher)
}

// URL returns the link or "" when absent.
func (n NewsItem) URL() string {
	if n.Link == nil {
		return ""
	}
	return *n.Link
}

// HasTitle reports whether the provider supplied a non-blank title.
func (n NewsItem) HasTitle() bool {
	return n.Title != nil && strings.TrimSpace(*n.Title) != ""
}

// Snapshot bundles everything fetched for one ticker in one request.
type Snapshot struct {
	Ticker    TickerCode   `json:"ticker"`
	Symbol    string       `json:"symbol"`
	Quote     Quote        `json:"quote"`
	History   PriceHistory `json:"history"`
	News      []NewsItem   `json:"news"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// StringPtr, FloatPtr and TimePtr build optional fields.
func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }

func TimePtr(t time.Time) *time.Time { return &t }

func stringOr(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return FallbackDisplay
	}
	return *s
}

// finite reports whether f is set and is neither NaN nor ±Inf.
func finite(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0)
}

func floatOr(f *float64, format string) string {
	if !finite(f) {
		return FallbackDisplay
	}
	return fmt.Sprintf(format, *f)
}

// groupThousands formats v with comma separators and the given decimals.
func groupThousands(v float64, decimals int) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
