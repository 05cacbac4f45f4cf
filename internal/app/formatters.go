package app

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/kessan/internal/models"
)

// formatSnapshot formats a snapshot as markdown
func formatSnapshot(snap *models.Snapshot) string {
	var sb strings.Builder
	q := snap.Quote

	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", q.DisplayName(), snap.Symbol))
	sb.WriteString(formatQuoteTable(q))

	sb.WriteString("\n## Price History\n\n")
	if last, ok := snap.History.Last(); ok {
		first := snap.History[0]
		sb.WriteString(fmt.Sprintf("%d closes from %s to %s. ", len(snap.History),
			first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("First %.1f, last %.1f", first.Close, last.Close))
		if first.Close != 0 {
			sb.WriteString(fmt.Sprintf(" (%+.2f%%)", (last.Close-first.Close)/first.Close*100))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No price history available.\n")
	}

	sb.WriteString("\n## News\n\n")
	sb.WriteString(formatNews(snap.News))

	return sb.String()
}

func formatQuoteTable(q models.Quote) string {
	var sb strings.Builder
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Price | %s |\n", q.DisplayPrice()))
	sb.WriteString(fmt.Sprintf("| P/E (trailing) | %s |\n", q.DisplayPE()))
	sb.WriteString(fmt.Sprintf("| P/B | %s |\n", q.DisplayPBR()))
	sb.WriteString(fmt.Sprintf("| Dividend Yield | %s |\n", q.DisplayDividendYield()))
	sb.WriteString(fmt.Sprintf("| Market Cap | %s |\n", q.DisplayMarketCap()))
	return sb.String()
}

func formatNews(news []models.NewsItem) string {
	if len(news) == 0 {
		return "No news available.\n"
	}
	var sb strings.Builder
	for _, n := range news {
		if url := n.URL(); url != "" {
			sb.WriteString(fmt.Sprintf("- [%s](%s)", n.DisplayTitle(), url))
		} else {
			sb.WriteString("- " + n.DisplayTitle())
		}
		if n.Publisher != nil {
			sb.WriteString(" (" + n.DisplayPublisher() + ")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatFilingSearch formats a filing search outcome as markdown
func formatFilingSearch(code models.TickerCode, search models.FilingSearch) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Earnings Summary Search: %s\n\n", code))

	switch search.Status {
	case models.FilingFound:
		doc := search.Document
		sb.WriteString("**Status:** found\n")
		sb.WriteString(fmt.Sprintf("**Description:** %s\n", doc.Description))
		sb.WriteString(fmt.Sprintf("**Document ID:** %s\n", doc.DocID))
		sb.WriteString(fmt.Sprintf("**Filed:** %s\n", doc.Date.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("**Size:** %d bytes\n", len(doc.Content)))
	case models.FilingBlocked:
		sb.WriteString("**Status:** blocked\n\n")
		sb.WriteString("EDINET refused the request (HTTP 403). This does not mean the filing is missing: retry later or supply the PDF manually.\n")
	default:
		sb.WriteString("**Status:** not found\n\n")
		sb.WriteString(fmt.Sprintf("No earnings summary in the last %d days.\n", search.DaysScanned))
	}
	return sb.String()
}

// formatReport formats an analysis report as markdown
func formatReport(r *models.Report) string {
	var sb strings.Builder

	name := models.FallbackDisplay
	symbol := r.Ticker.String()
	if r.Snapshot != nil {
		name = r.Snapshot.Quote.DisplayName()
		symbol = r.Snapshot.Symbol
	}

	sb.WriteString(fmt.Sprintf("# Analysis: %s (%s)\n\n", name, symbol))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", r.GeneratedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**PDF Source:** %s\n\n", r.PDFSource))

	if len(r.Messages) > 0 {
		for _, m := range r.Messages {
			sb.WriteString("> " + m + "\n")
		}
		sb.WriteString("\n")
	}

	if r.Snapshot != nil {
		sb.WriteString("## Metrics\n\n")
		sb.WriteString(formatQuoteTable(r.Snapshot.Quote))
		sb.WriteString("\n## News\n\n")
		sb.WriteString(formatNews(r.Snapshot.News))
	}

	if r.PDF != nil {
		sb.WriteString(fmt.Sprintf("\n**PDF:** %d pages, %d characters of text\n", r.PDF.Pages, len([]rune(r.PDF.Text))))
	}

	if r.Narrative != "" {
		sb.WriteString("\n## Commentary\n\n")
		sb.WriteString(r.Narrative)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatSentiment formats a board sentiment report as markdown
func formatSentiment(r *models.SentimentReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Board Sentiment: %s\n\n", r.Ticker))
	sb.WriteString(fmt.Sprintf("**Posts read:** %d\n\n", r.PostCount))
	for _, m := range r.Messages {
		sb.WriteString("> " + m + "\n")
	}
	if len(r.Messages) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(r.Narrative)
	sb.WriteString("\n")
	return sb.String()
}
