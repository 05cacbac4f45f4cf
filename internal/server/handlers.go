package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
	"github.com/bobmcallan/kessan/internal/services/snapshot"
)

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	model := s.app.ModelName()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":      common.GetVersion(),
		"build":        common.GetBuild(),
		"commit":       common.GetGitCommit(),
		"model":        model,
		"ai_available": model != "",
		"uptime":       time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// --- Market data handlers ---

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	raw, ok := RequireTicker(w, r)
	if !ok {
		return
	}
	code, err := models.ParseTicker(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.app.SnapshotService.Fetch(r.Context(), code)
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error fetching snapshot: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

// handleChart serves the closing-price line chart as PNG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	raw, ok := RequireTicker(w, r)
	if !ok {
		return
	}
	code, err := models.ParseTicker(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.app.SnapshotService.Fetch(r.Context(), code)
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error fetching snapshot: %v", err))
		return
	}
	if len(snap.History) < snapshot.MinChartPoints {
		WriteErrorWithCode(w, http.StatusNotFound, "Not enough price history to draw a chart", "no_history")
		return
	}

	png, err := snapshot.RenderPriceChart(snap.Symbol, snap.History)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error rendering chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// --- Disclosure handlers ---

type disclosureResponse struct {
	Ticker      models.TickerCode   `json:"ticker"`
	Status      models.FilingStatus `json:"status"`
	DaysScanned int                 `json:"days_scanned"`
	DocID       string              `json:"doc_id,omitempty"`
	Description string              `json:"description,omitempty"`
	Date        string              `json:"date,omitempty"`
	Size        int                 `json:"size,omitempty"`
}

func (s *Server) findFiling(w http.ResponseWriter, r *http.Request) (models.TickerCode, models.FilingSearch, bool) {
	raw, ok := RequireTicker(w, r)
	if !ok {
		return "", models.FilingSearch{}, false
	}
	code, err := models.ParseTicker(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return "", models.FilingSearch{}, false
	}

	result, err := s.app.DisclosureService.Find(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrEmptyTicker) {
			WriteError(w, http.StatusBadRequest, err.Error())
		} else {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error searching filings: %v", err))
		}
		return "", models.FilingSearch{}, false
	}
	return code, result, true
}

func (s *Server) handleDisclosure(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	code, result, ok := s.findFiling(w, r)
	if !ok {
		return
	}

	resp := disclosureResponse{
		Ticker:      code.Full(),
		Status:      result.Status,
		DaysScanned: result.DaysScanned,
	}
	if result.Found() {
		resp.DocID = result.Document.DocID
		resp.Description = result.Document.Description
		resp.Date = result.Document.Date.Format("2006-01-02")
		resp.Size = len(result.Document.Content)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// handleDisclosurePDF streams the filing bytes. Blocked maps to 503 and
// not-found to 404 so callers can tell them apart.
func (s *Server) handleDisclosurePDF(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	_, result, ok := s.findFiling(w, r)
	if !ok {
		return
	}

	switch {
	case result.Found():
		doc := result.Document
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.DocID+".pdf"))
		w.WriteHeader(http.StatusOK)
		w.Write(doc.Content)
	case result.Blocked():
		WriteErrorWithCode(w, http.StatusServiceUnavailable, "The disclosure registry refused the request", "blocked")
	default:
		WriteErrorWithCode(w, http.StatusNotFound,
			fmt.Sprintf("No earnings summary found in the last %d days", result.DaysScanned), "not_found")
	}
}

// --- Analysis handlers ---

type analyzeRequest struct {
	Ticker         string `json:"ticker" validate:"required,max=8"`
	AutoDisclosure *bool  `json:"auto_disclosure"`
	Narrate        *bool  `json:"narrate"`
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	report, err := s.app.AnalysisService.Run(r.Context(), interfaces.AnalysisRequest{
		Ticker:         req.Ticker,
		AutoDisclosure: boolOr(req.AutoDisclosure, true),
		Narrate:        boolOr(req.Narrate, true),
	})
	if err != nil {
		if errors.Is(err, models.ErrEmptyTicker) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	raw, ok := RequireTicker(w, r)
	if !ok {
		return
	}

	report, err := s.app.AnalysisService.BoardSentiment(r.Context(), raw)
	if err != nil {
		if errors.Is(err, models.ErrEmptyTicker) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Sentiment failed: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
