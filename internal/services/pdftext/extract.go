// Package pdftext extracts the text layer of PDF filings
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// Extractor implements PDFExtractor
type Extractor struct {
	logger *common.Logger
}

// NewExtractor creates a new PDF text extractor
func NewExtractor(logger *common.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract concatenates the plain text of every page in page order. A PDF with
// no text layer yields an empty Text, not an error.
func (e *Extractor) Extract(data []byte) (result *models.PDFText, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty PDF data")
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	pages := r.NumPage()
	skipped := 0

	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			skipped++
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	e.logger.Debug().Int("pages", pages).Int("skipped", skipped).Int("chars", sb.Len()).Msg("PDF text extracted")

	return &models.PDFText{Text: sb.String(), Pages: pages}, nil
}

// Ensure Extractor implements PDFExtractor
var _ interfaces.PDFExtractor = (*Extractor)(nil)
