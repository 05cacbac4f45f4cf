package app

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/kessan/internal/common"
	"github.com/bobmcallan/kessan/internal/interfaces"
	"github.com/bobmcallan/kessan/internal/models"
)

// handleGetVersion implements the get_version tool
func handleGetVersion(model string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if model == "" {
			model = "(not configured)"
		}
		result := fmt.Sprintf("kessan MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nModel: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit(), model)
		return textResult(result), nil
	}
}

// handleGetStockSnapshot implements the get_stock_snapshot tool
func handleGetStockSnapshot(snapshots interfaces.SnapshotService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		snap, err := snapshots.Fetch(ctx, models.TickerCode(ticker))
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Snapshot failed")
			return errorResult(fmt.Sprintf("Snapshot error: %v", err)), nil
		}

		return textResult(formatSnapshot(snap)), nil
	}
}

// handleFindDisclosure implements the find_disclosure tool
func handleFindDisclosure(disclosure interfaces.DisclosureService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		search, err := disclosure.Find(ctx, models.TickerCode(ticker))
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Disclosure search failed")
			return errorResult(fmt.Sprintf("Disclosure error: %v", err)), nil
		}

		return textResult(formatFilingSearch(models.NormalizeTicker(ticker), search)), nil
	}
}

// handleAnalyzeStock implements the analyze_stock tool
func handleAnalyzeStock(analysis interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		report, err := analysis.Run(ctx, interfaces.AnalysisRequest{
			Ticker:         ticker,
			AutoDisclosure: request.GetBool("auto_disclosure", true),
			Narrate:        request.GetBool("narrate", true),
		})
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		return textResult(formatReport(report)), nil
	}
}

// handleBoardSentiment implements the board_sentiment tool
func handleBoardSentiment(analysis interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		report, err := analysis.BoardSentiment(ctx, ticker)
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Board sentiment failed")
			return errorResult(fmt.Sprintf("Sentiment error: %v", err)), nil
		}

		return textResult(formatSentiment(report)), nil
	}
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
