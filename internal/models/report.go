package models

import "time"

// PDFSource records where the analysed PDF came from.
type PDFSource string

const (
	PDFSourceNone     PDFSource = "none"
	PDFSourceUpload   PDFSource = "upload"
	PDFSourceRegistry PDFSource = "edinet"
)

// Report is the outcome of one analysis request. Failures in individual
// stages surface as Messages rather than aborting the report.
type Report struct {
	Ticker      TickerCode    `json:"ticker"`
	Snapshot    *Snapshot     `json:"snapshot,omitempty"`
	Filing      *FilingSearch `json:"filing,omitempty"`
	PDFSource   PDFSource     `json:"pdf_source"`
	PDFName     string        `json:"pdf_name,omitempty"`
	PDF         *PDFText      `json:"pdf,omitempty"`
	Narrative   string        `json:"narrative,omitempty"`
	Messages    []string      `json:"messages,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// AddMessage appends a user-facing note.
func (r *Report) AddMessage(msg string) {
	r.Messages = append(r.Messages, msg)
}

// SentimentReport is the outcome of a message-board sentiment request.
type SentimentReport struct {
	Ticker      TickerCode `json:"ticker"`
	PostCount   int        `json:"post_count"`
	Posts       []string   `json:"posts,omitempty"`
	Narrative   string     `json:"narrative"`
	Messages    []string   `json:"messages,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}
