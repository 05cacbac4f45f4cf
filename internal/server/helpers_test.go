package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/analyze", nil)

	if RequireMethod(rr, req, http.MethodGet, http.MethodPost) {
		t.Fatal("Expected DELETE to be rejected")
	}
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
	if got := rr.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Expected Allow header 'GET, POST', got %q", got)
	}
}

func TestDecodeJSON_ValidatesStruct(t *testing.T) {
	var req analyzeRequest
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"ticker":"","narrate":true}`))

	if DecodeJSON(rr, r, &req) {
		t.Fatal("Expected empty ticker to fail validation")
	}
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid request") {
		t.Errorf("Expected validation message, got %s", rr.Body.String())
	}
}

func TestDecodeJSON_Success(t *testing.T) {
	var req analyzeRequest
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"ticker":"6758","auto_disclosure":false}`))

	if !DecodeJSON(rr, r, &req) {
		t.Fatalf("Expected decode to succeed, got %s", rr.Body.String())
	}
	if req.Ticker != "6758" {
		t.Errorf("Expected ticker 6758, got %q", req.Ticker)
	}
	if boolOr(req.AutoDisclosure, true) {
		t.Error("Expected auto_disclosure=false to be honoured")
	}
	if !boolOr(req.Narrate, true) {
		t.Error("Expected narrate to default to true")
	}
}

func TestRequireTicker_Trims(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/snapshot?ticker=%207203%20", nil)

	ticker, ok := RequireTicker(rr, r)
	if !ok || ticker != "7203" {
		t.Errorf("Expected trimmed ticker 7203, got %q (ok=%v)", ticker, ok)
	}
}
