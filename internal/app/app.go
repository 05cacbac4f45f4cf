package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/kessan/internal/clients/board"
	"github.com/bobmcallan/kessan/internal/clients/edinet"
	"github.com/bobmcallan/kessan/internal/clients/gemini"
	"github.com/bobmcallan/kessan/internal/clients/yahoo"
	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/services/analysis"
	"github.com/bobmcallan/kessan/internal/services/disclosure"
	"github.com/bobmcallan/kessan/internal/services/narrative"
	"github.com/bobmcallan/kessan/internal/services/pdftext"
	"github.com/bobmcallan/kessan/internal/services/snapshot"
)

// App holds all initialized services, clients, and the MCP server.
// It is shared by the web UI, the JSON API and the MCP endpoint.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	EDINETClient      interfaces.EDINETClient
	MarketClient      interfaces.MarketDataClient
	BoardClient       interfaces.BoardClient
	Generator         interfaces.TextGenerator // nil when no Gemini key is configured
	DisclosureService interfaces.DisclosureService
	SnapshotService   interfaces.SnapshotService
	PDFExtractor      interfaces.PDFExtractor
	NarrativeService  interfaces.NarrativeService
	AnalysisService   interfaces.AnalysisService
	MCPServer         *server.MCPServer
	StartupTime       time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: explicit path, KESSAN_CONFIG,
// kessan.toml next to the binary, then config/kessan.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("KESSAN_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "kessan.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/kessan.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	var generator interfaces.TextGenerator
	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
	} else {
		client, err := gemini.NewClient(context.Background(), geminiKey,
			gemini.WithLogger(logger),
			gemini.WithPreferredModels(config.Clients.Gemini.Models),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			generator = client
		}
	}

	return NewWithGenerator(config, logger, generator), nil
}

// NewWithGenerator builds the App from an already loaded config. generator may be nil.
func NewWithGenerator(config *common.Config, logger *common.Logger, generator interfaces.TextGenerator) *App {
	startupStart := time.Now()

	edinetOpts := []edinet.ClientOption{
		edinet.WithBaseURL(config.Clients.EDINET.BaseURL),
		edinet.WithLogger(logger),
		edinet.WithTimeout(config.Clients.EDINET.GetTimeout()),
	}
	if config.Clients.EDINET.Referer != "" {
		edinetOpts = append(edinetOpts, edinet.WithReferer(config.Clients.EDINET.Referer))
	}
	if key, err := common.ResolveAPIKey("edinet_api_key", config.Clients.EDINET.APIKey); err == nil {
		edinetOpts = append(edinetOpts, edinet.WithAPIKey(key))
	}
	edinetClient := edinet.NewClient(edinetOpts...)

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	boardClient := board.NewClient(
		board.WithBaseURL(config.Clients.Board.BaseURL),
		board.WithPostSelector(config.Clients.Board.PostSelector),
		board.WithMarketSuffix(config.Clients.Yahoo.MarketSuffix),
		board.WithLogger(logger),
		board.WithTimeout(config.Clients.Board.GetTimeout()),
	)

	disclosureService := disclosure.NewService(edinetClient,
		disclosure.PolicyFromConfig(config.Disclosure, config.Clients.EDINET), logger)
	snapshotService := snapshot.NewService(yahooClient, snapshot.OptionsFromConfig(config.Clients.Yahoo), logger)
	extractor := pdftext.NewExtractor(logger)
	narrativeService := narrative.NewService(generator, narrative.OptionsFromConfig(config.Narrative), logger)
	analysisService := analysis.NewService(snapshotService, disclosureService, extractor, narrativeService,
		boardClient, config.Clients.Board.MaxPosts, logger)

	mcpServer := server.NewMCPServer(
		"kessan",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:            config,
		Logger:            logger,
		EDINETClient:      edinetClient,
		MarketClient:      yahooClient,
		BoardClient:       boardClient,
		Generator:         generator,
		DisclosureService: disclosureService,
		SnapshotService:   snapshotService,
		PDFExtractor:      extractor,
		NarrativeService:  narrativeService,
		AnalysisService:   analysisService,
		MCPServer:         mcpServer,
		StartupTime:       startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a
}

// ModelName returns the generative model in use, or "" when none is configured.
func (a *App) ModelName() string {
	if a.Generator == nil {
		return ""
	}
	return a.Generator.Model()
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion(a.ModelName()))
	s.AddTool(createGetStockSnapshotTool(), handleGetStockSnapshot(a.SnapshotService, logger))
	s.AddTool(createFindDisclosureTool(), handleFindDisclosure(a.DisclosureService, logger))
	s.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(a.AnalysisService, logger))
	s.AddTool(createBoardSentimentTool(), handleBoardSentiment(a.AnalysisService, logger))
}

// Close releases resources held by the App.
func (a *App) Close() {
	a.Logger.Debug().Msg("App closed")
}
