package server

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerRoutes sets up all routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Web UI
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/analyze", s.handleAnalyzePage)
	mux.HandleFunc("/sentiment", s.handleSentimentPage)

	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Market data and filings
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/chart", s.handleChart)
	mux.HandleFunc("/api/disclosure", s.handleDisclosure)
	mux.HandleFunc("/api/disclosure/pdf", s.handleDisclosurePDF)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/sentiment", s.handleSentiment)

	// MCP over Streamable HTTP
	if s.app.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
			mcpserver.WithStateLess(true),
		))
	}
}
