package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TestNewApp_InitializesAllServices verifies that NewApp creates an App with
// all services, clients, and the MCP server initialized and non-nil.
func TestNewApp_InitializesAllServices(t *testing.T) {
	clearModelKeys(t)
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config == nil || a.Logger == nil || a.MCPServer == nil {
		t.Fatal("Config, Logger and MCPServer must be set")
	}
	if a.EDINETClient == nil || a.MarketClient == nil || a.BoardClient == nil {
		t.Error("Expected all upstream clients to be initialized")
	}
	if a.DisclosureService == nil || a.SnapshotService == nil || a.PDFExtractor == nil ||
		a.NarrativeService == nil || a.AnalysisService == nil {
		t.Error("Expected all services to be initialized")
	}
	if a.Generator != nil {
		t.Error("Expected no generator without a Gemini key")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
}

// TestNewApp_RegistersAllTools verifies the MCP tool surface through an in-process client.
func TestNewApp_RegistersAllTools(t *testing.T) {
	clearModelKeys(t)
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	c := newInProcessClient(t, a.MCPServer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	toolsResult, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	toolNames := make(map[string]bool)
	for _, tool := range toolsResult.Tools {
		toolNames[tool.Name] = true
	}
	for _, name := range []string{"get_version", "get_stock_snapshot", "find_disclosure", "analyze_stock", "board_sentiment"} {
		if !toolNames[name] {
			t.Errorf("Expected tool %q not registered", name)
		}
	}
	if len(toolsResult.Tools) != 5 {
		t.Errorf("Expected 5 tools, got %d", len(toolsResult.Tools))
	}
}

// TestNewApp_AnalyzeDegradesWhenUpstreamsFail runs analyze_stock against
// upstreams that answer 404 to everything: the report still comes back.
func TestNewApp_AnalyzeDegradesWhenUpstreamsFail(t *testing.T) {
	clearModelKeys(t)

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	a, err := NewApp(writeTestConfig(t, upstream.URL))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	c := newInProcessClient(t, a.MCPServer)

	req := mcp.CallToolRequest{}
	req.Params.Name = "analyze_stock"
	req.Params.Arguments = map[string]interface{}{"ticker": "7203", "narrate": false}
	result, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze_stock failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected a degraded report, got tool error")
	}

	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "直近2日間に決算短信が見つかりませんでした") {
		t.Errorf("Expected not-found message for the 2-day window, got: %s", text)
	}
	if !strings.Contains(text, "(7203.T)") {
		t.Errorf("Expected market symbol in report, got: %s", text)
	}
	if strings.Contains(text, "## Commentary") {
		t.Error("Expected no commentary when narrate=false")
	}
	// quote, its chart-meta fallback, history and news, plus one index request per day
	if got := hits.Load(); got != 6 {
		t.Errorf("Expected 6 upstream requests, got %d", got)
	}
}

// TestNewApp_GetVersionToolWorks verifies that the get_version tool works
// through a full App initialization.
func TestNewApp_GetVersionToolWorks(t *testing.T) {
	clearModelKeys(t)
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	c := newInProcessClient(t, a.MCPServer)

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_version"
	result, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("get_version failed: %v", err)
	}

	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "(not configured)") {
		t.Errorf("Expected unconfigured model in output, got: %s", text)
	}
}

func TestNewApp_CloseIsIdempotent(t *testing.T) {
	clearModelKeys(t)
	a, err := NewApp(writeTestConfig(t, ""))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	a.Close()
	a.Close()
}

func TestNewApp_InvalidConfigReturnsError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad toml", content: "{{{{invalid toml"},
		{name: "bad port", content: "[server]\nport = 70000\n"},
		{name: "empty model list", content: "[clients.gemini]\nmodels = []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewApp(configPath); err == nil {
				t.Fatal("Expected error for invalid config, got nil")
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("KESSAN_CONFIG", "/etc/kessan/custom.toml")

	if got := ResolveConfigPath("explicit.toml"); got != "explicit.toml" {
		t.Errorf("Expected explicit path to win, got %q", got)
	}
	if got := ResolveConfigPath(""); got != "/etc/kessan/custom.toml" {
		t.Errorf("Expected KESSAN_CONFIG, got %q", got)
	}

	t.Setenv("KESSAN_CONFIG", "")
	got := ResolveConfigPath("")
	if !strings.HasSuffix(got, "kessan.toml") {
		t.Errorf("Expected a kessan.toml fallback, got %q", got)
	}
}

// --- test helpers ---

func clearModelKeys(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "KESSAN_GEMINI_API_KEY", "GOOGLE_API_KEY", "EDINET_API_KEY", "KESSAN_EDINET_API_KEY"} {
		t.Setenv(key, "")
	}
}

// writeTestConfig creates a minimal kessan.toml in a temp directory. When
// upstream is set, every client points at it and the scan is shortened to two
// unpaced days.
func writeTestConfig(t *testing.T, upstream string) string {
	t.Helper()
	dir := t.TempDir()

	config := `
[logging]
level = "error"
outputs = ["console"]
file_path = "` + filepath.Join(dir, "kessan.log") + `"
`
	if upstream != "" {
		config += `
[clients.edinet]
base_url = "` + upstream + `"
timeout = "2s"

[clients.yahoo]
base_url = "` + upstream + `"
timeout = "2s"

[clients.board]
base_url = "` + upstream + `"

[disclosure]
window_days = 2
request_delay = "0s"
`
	}

	configPath := filepath.Join(dir, "kessan.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

// newInProcessClient creates an mcp-go in-process client connected to the given
// MCP server and completes the initialization handshake.
func newInProcessClient(t *testing.T, mcpServer *server.MCPServer) *client.Client {
	t.Helper()

	c, err := client.NewInProcessClient(mcpServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Failed to start client: %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		t.Fatalf("Failed to initialize client: %v", err)
	}
	return c
}
