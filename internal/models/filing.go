package models

import (
	"strings"
	"time"
)

// FilingRecord is one entry of the disclosure registry's per-day index.
type FilingRecord struct {
	DocID          string `json:"docID"`
	SecCode        string `json:"secCode"`
	DocDescription string `json:"docDescription"`
	FilerName      string `json:"filerName,omitempty"`
	SubmitDateTime string `json:"submitDateTime,omitempty"`
}

// FilingIndex is the registry's documents.json response.
type FilingIndex struct {
	Results []FilingRecord `json:"results"`
}

// FilingDocument is a downloaded filing. It belongs to the caller and is never cached.
type FilingDocument struct {
	DocID       string    `json:"doc_id"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Content     []byte    `json:"-"`
}

// FilingStatus tags the outcome of a filing search.
type FilingStatus string

const (
	FilingFound    FilingStatus = "found"
	FilingBlocked  FilingStatus = "blocked"
	FilingNotFound FilingStatus = "not_found"
)

// FilingSearch is the three-way result of a filing search. Document is set only
// when Status is FilingFound. A blocked search says nothing about whether the
// filing exists.
type FilingSearch struct {
	Status      FilingStatus    `json:"status"`
	Document    *FilingDocument `json:"document,omitempty"`
	DaysScanned int             `json:"days_scanned"`
}

// Found reports whether the search produced a document.
func (s FilingSearch) Found() bool {
	return s.Status == FilingFound && s.Document != nil
}

// Blocked reports whether the registry refused the search.
func (s FilingSearch) Blocked() bool {
	return s.Status == FilingBlocked
}

// PDFText is text extracted from a PDF in page order. A nil *PDFText means no
// PDF was provided; a non-nil value with Empty() true means the PDF had no
// text layer (e.g. scanned images).
type PDFText struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

// Empty reports whether extraction produced no usable text.
func (p *PDFText) Empty() bool {
	return p == nil || strings.TrimSpace(p.Text) == ""
}
