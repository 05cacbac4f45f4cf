package narrative

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/kessan/internal/models"
)

// NoNewsMarker stands in for the news block when there are no headlines.
const NoNewsMarker = "なし"

// buildAnalysisPrompt lays out quote fields, headlines and filing text in a fixed order.
func buildAnalysisPrompt(quote models.Quote, news []models.NewsItem, pdf *models.PDFText, maxNews, maxPDFChars int) string {
	var sb strings.Builder

	sb.WriteString("あなたは日本株を担当する証券アナリストです。以下のデータをもとに、")
	sb.WriteString("業績の要点、株価水準の評価、リスク要因、今後の注目点を日本語で簡潔にまとめてください。\n\n")

	sb.WriteString("## 銘柄データ\n")
	fmt.Fprintf(&sb, "- 銘柄名: %s\n", quote.DisplayName())
	fmt.Fprintf(&sb, "- シンボル: %s\n", quote.DisplaySymbol())
	fmt.Fprintf(&sb, "- 現在株価: %s\n", quote.DisplayPrice())
	fmt.Fprintf(&sb, "- PER（実績）: %s\n", quote.DisplayPE())
	fmt.Fprintf(&sb, "- PBR: %s\n", quote.DisplayPBR())
	fmt.Fprintf(&sb, "- 配当利回り: %s\n", quote.DisplayDividendYield())
	fmt.Fprintf(&sb, "- 時価総額: %s\n", quote.DisplayMarketCap())

	sb.WriteString("\n## 最近のニュース\n")
	titles := headlineTitles(news, maxNews)
	if len(titles) == 0 {
		sb.WriteString(NoNewsMarker)
		sb.WriteString("\n")
	}
	for _, t := range titles {
		fmt.Fprintf(&sb, "- %s\n", t)
	}

	if pdf != nil && !pdf.Empty() {
		sb.WriteString("\n## 決算短信（抜粋）\n")
		sb.WriteString(truncateRunes(strings.TrimSpace(pdf.Text), maxPDFChars))
		sb.WriteString("\n")
	}

	return sb.String()
}

// buildSentimentPrompt asks for the mood of message-board posts.
func buildSentimentPrompt(ticker models.TickerCode, posts []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "以下は銘柄コード %s の株式掲示板に投稿された最近のコメントです。\n", ticker)
	sb.WriteString("投資家心理を「強気」「弱気」「中立」のいずれかで判定し、その根拠と主な話題を日本語で簡潔にまとめてください。\n\n")
	sb.WriteString("## 投稿\n")
	for i, p := range posts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}

	return sb.String()
}

// headlineTitles returns up to max titles, skipping untitled items.
func headlineTitles(news []models.NewsItem, max int) []string {
	var titles []string
	for _, n := range news {
		if len(titles) >= max {
			break
		}
		if !n.HasTitle() {
			continue
		}
		titles = append(titles, n.DisplayTitle())
	}
	return titles
}

// truncateRunes keeps at most n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
