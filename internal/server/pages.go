package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
	"github.com/bobmcallan/kessan/internal/services/snapshot"
)

//go:embed templates/*.html
var templateFS embed.FS

// User-facing page errors.
const (
	msgUnexpected   = "予期しないエラーが発生しました。もう一度お試しください。"
	msgTickerNeeded = "銘柄コードを入力してください。"
	msgNotPDF       = "PDFファイルのみアップロードできます。"
	msgUploadFailed = "ファイルの読み込みに失敗しました。"
)

// TickerMaxLength bounds the ticker input in the form.
const TickerMaxLength = 4

// pageData is everything the index template renders. Zero values render the empty form.
type pageData struct {
	Version        string
	Model          string
	TickerMax      int
	Ticker         string
	AutoDisclosure bool
	Error          string

	Report    *models.Report
	ChartURI  template.URL
	Narrative template.HTML

	Sentiment          *models.SentimentReport
	SentimentNarrative template.HTML
}

// pageRenderer owns the parsed template and markdown converter.
type pageRenderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"pct": func(h models.PriceHistory) string {
			if len(h) < 2 || h[0].Close == 0 {
				return models.FallbackDisplay
			}
			first, last := h[0].Close, h[len(h)-1].Close
			return fmt.Sprintf("%+.2f%%", (last-first)/first*100)
		},
		"date": func(d *models.FilingDocument) string {
			if d == nil {
				return ""
			}
			return d.Date.Format("2006-01-02")
		},
	}
	return &pageRenderer{
		tmpl: template.Must(template.New("index.html").Funcs(funcs).ParseFS(templateFS, "templates/index.html")),
		// Raw HTML in model output is dropped; goldmark only passes it through with html.WithUnsafe.
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// markdown converts model prose to HTML. On failure the text is shown escaped.
func (p *pageRenderer) markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}

// chartURI renders the price chart as an inline PNG data URI, or "" when there is
// not enough history.
func chartURI(snap *models.Snapshot) template.URL {
	if snap == nil || len(snap.History) < snapshot.MinChartPoints {
		return ""
	}
	png, err := snapshot.RenderPriceChart(snap.Symbol, snap.History)
	if err != nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

func (s *Server) basePage() pageData {
	return pageData{
		Version:        common.GetVersion(),
		Model:          s.app.ModelName(),
		TickerMax:      TickerMaxLength,
		AutoDisclosure: true,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// uiAction runs a page action. A panic or returned error is logged and rendered
// as a generic on-page error so the form stays usable.
func (s *Server) uiAction(w http.ResponseWriter, r *http.Request, action func(*pageData) error) {
	data := s.basePage()
	failed := func(reason string) {
		s.logger.Error().Str("path", r.URL.Path).Str("ticker", data.Ticker).Str("error", reason).Msg("UI action failed")
		data.Report, data.Sentiment = nil, nil
		data.ChartURI, data.Narrative, data.SentimentNarrative = "", "", ""
		data.Error = msgUnexpected
		s.renderPage(w, http.StatusOK, data)
	}

	defer func() {
		if rec := recover(); rec != nil {
			failed(fmt.Sprintf("panic: %v", rec))
		}
	}()

	if err := action(&data); err != nil {
		failed(err.Error())
		return
	}
	s.renderPage(w, http.StatusOK, data)
}

// --- Page handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.renderPage(w, http.StatusOK, s.basePage())
}

func (s *Server) handleAnalyzePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.uiAction(w, r, func(data *pageData) error {
		maxBytes := s.app.Config.Server.GetMaxUploadBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			s.logger.Warn().Err(err).Msg("Failed to parse upload form")
			data.Error = msgUploadFailed
			return nil
		}

		data.Ticker = strings.TrimSpace(r.FormValue("ticker"))
		data.AutoDisclosure = r.FormValue("auto_disclosure") != ""
		if data.Ticker == "" {
			data.Error = msgTickerNeeded
			return nil
		}

		upload, name, err := readUpload(r, maxBytes)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Rejected upload")
			if errors.Is(err, errNotPDF) {
				data.Error = msgNotPDF
			} else {
				data.Error = msgUploadFailed
			}
			return nil
		}

		report, err := s.app.AnalysisService.Run(r.Context(), interfaces.AnalysisRequest{
			Ticker:         data.Ticker,
			UploadedPDF:    upload,
			UploadedName:   name,
			AutoDisclosure: data.AutoDisclosure,
			Narrate:        true,
		})
		if err != nil {
			if errors.Is(err, models.ErrEmptyTicker) {
				data.Error = msgTickerNeeded
				return nil
			}
			return err
		}

		data.Report = report
		data.ChartURI = chartURI(report.Snapshot)
		data.Narrative = s.pages.markdown(report.Narrative)
		return nil
	})
}

func (s *Server) handleSentimentPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.uiAction(w, r, func(data *pageData) error {
		data.Ticker = strings.TrimSpace(r.FormValue("ticker"))
		data.AutoDisclosure = r.FormValue("auto_disclosure") != ""
		if data.Ticker == "" {
			data.Error = msgTickerNeeded
			return nil
		}

		report, err := s.app.AnalysisService.BoardSentiment(r.Context(), data.Ticker)
		if err != nil {
			if errors.Is(err, models.ErrEmptyTicker) {
				data.Error = msgTickerNeeded
				return nil
			}
			return err
		}

		data.Sentiment = report
		data.SentimentNarrative = s.pages.markdown(report.Narrative)
		return nil
	})
}

var errNotPDF = errors.New("uploaded file is not a PDF")

// readUpload returns the "pdf" form file, or nil when none was chosen.
func readUpload(r *http.Request, maxBytes int64) ([]byte, string, error) {
	if r.MultipartForm == nil {
		return nil, "", nil
	}
	file, header, err := r.FormFile("pdf")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	if header.Size == 0 && header.Filename == "" {
		return nil, "", nil
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") || !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, "", errNotPDF
	}
	return data, header.Filename, nil
}
