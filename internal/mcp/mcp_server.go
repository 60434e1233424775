// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FetcherFactory builds the fetcher for a strategy.
type FetcherFactory func(strategy schema.FetchStrategy) (contract.Fetcher, error)

// NewMCPServer initializes and configures the indexhist MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr *iostore.StoreManager, newFetcher FetcherFactory) *server.MCPServer {
	s := server.NewMCPServer(
		"Index History Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:    baseCfg,
		mgr:        mgr,
		newFetcher: newFetcher,
	}

	// --- 1. Tool: get_index_data ---
	s.AddTool(mcp.NewTool("get_index_data",
		mcp.WithDescription("Fetch the historical series of an index from the producer without storing it."),
		mcp.WithString("index", mcp.Description("Index name, e.g. 'tipous' or 'imoex'."), mcp.Required()),
		mcp.WithString("period", mcp.Description("History period. Defaults to 'year'."), mcp.Enum("year", "all")),
		mcp.WithNumber("last", mcp.Description("Keep only the last N points (0 keeps all).")),
		mcp.WithString("strategy", mcp.Description("How to fetch the payload. Defaults to 'page'."), mcp.Enum("page", "api", "browser")),
	), h.handleGetIndexData)

	// --- 2. Tool: save_index_data ---
	s.AddTool(mcp.NewTool("save_index_data",
		mcp.WithDescription("Fetch the historical series of an index and store it. Already stored points are skipped."),
		mcp.WithString("index", mcp.Description("Index name."), mcp.Required()),
		mcp.WithString("period", mcp.Description("History period."), mcp.Enum("year", "all")),
		mcp.WithNumber("last", mcp.Description("Store only the last N points (0 stores all).")),
		mcp.WithString("strategy", mcp.Description("How to fetch the payload."), mcp.Enum("page", "api", "browser")),
	), h.handleSaveIndexData)

	// --- 3. Tool: load_index_data ---
	s.AddTool(mcp.NewTool("load_index_data",
		mcp.WithDescription("Read stored points of an index, optionally within an inclusive time range."),
		mcp.WithString("index", mcp.Description("Index name."), mcp.Required()),
		mcp.WithString("start", mcp.Description("Inclusive lower bound, RFC3339 or YYYY-MM-DD.")),
		mcp.WithString("end", mcp.Description("Inclusive upper bound, RFC3339 or YYYY-MM-DD (a bare date covers the whole day).")),
	), h.handleLoadIndexData)

	return s
}

// StartMCPServer starts the indexhist MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr *iostore.StoreManager, newFetcher FetcherFactory) error {
	s := NewMCPServer(baseCfg, mgr, newFetcher)
	return server.ServeStdio(s)
}
