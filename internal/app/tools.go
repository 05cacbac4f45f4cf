package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the kessan server version, build and active model. Use this to verify connectivity."),
	)
}

// createGetStockSnapshotTool returns the get_stock_snapshot tool definition
func createGetStockSnapshotTool() mcp.Tool {
	return mcp.NewTool("get_stock_snapshot",
		mcp.WithDescription("Get quote, fundamentals (P/E, P/B, dividend yield, market cap), six-month closing prices and recent news for a Tokyo-listed stock."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Japanese securities code (e.g., '7203' for Toyota)"),
		),
	)
}

// createFindDisclosureTool returns the find_disclosure tool definition
func createFindDisclosureTool() mcp.Tool {
	return mcp.NewTool("find_disclosure",
		mcp.WithDescription("Search EDINET day by day for the most recent 決算短信 (earnings summary) filed for a ticker. Reports found, blocked (registry refused access, retry later) or not found."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Japanese securities code (e.g., '7203')"),
		),
	)
}

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Run the full analysis: market snapshot, optional EDINET earnings summary, PDF text extraction and an AI-written commentary in Japanese."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Japanese securities code (e.g., '7203')"),
		),
		mcp.WithBoolean("auto_disclosure",
			mcp.Description("Search EDINET for the latest earnings summary (default: true)"),
		),
		mcp.WithBoolean("narrate",
			mcp.Description("Generate the AI commentary (default: true)"),
		),
	)
}

// createBoardSentimentTool returns the board_sentiment tool definition
func createBoardSentimentTool() mcp.Tool {
	return mcp.NewTool("board_sentiment",
		mcp.WithDescription("Read recent investor message-board posts for a ticker and summarise the sentiment (bullish, bearish or neutral)."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Japanese securities code (e.g., '7203')"),
		),
	)
}
