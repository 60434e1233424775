package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/internal/iostore"
	"github.com/huangsam/indexhist/internal/parser"
	"github.com/huangsam/indexhist/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg    *contract.Config
	mgr        *iostore.StoreManager
	newFetcher FetcherFactory
}

// buildParser applies the request overrides to a clone of the base config and returns a parser.
func (h *toolHandler) buildParser(request mcp.CallToolRequest, withStore bool) (*parser.Parser, *contract.Config, error) {
	cfg := h.baseCfg.Clone()
	index := request.GetString("index", "")
	if index == "" {
		return nil, nil, fmt.Errorf("index is required")
	}
	if p := request.GetString("period", ""); p != "" {
		period, err := schema.ParsePeriod(p)
		if err != nil {
			return nil, nil, err
		}
		cfg.Period = period
	}
	if s := request.GetString("strategy", ""); s != "" {
		strategy := schema.FetchStrategy(strings.ToLower(s))
		if _, ok := schema.ValidFetchStrategies[strategy]; !ok {
			return nil, nil, fmt.Errorf("invalid strategy '%s'. must be page, api, browser", s)
		}
		cfg.Strategy = strategy
	}
	last := request.GetInt("last", cfg.Last)
	if last < 0 {
		return nil, nil, fmt.Errorf("last must not be negative (received %d)", last)
	}
	cfg.Last = last

	fetcher, err := h.newFetcher(cfg.Strategy)
	if err != nil {
		return nil, nil, err
	}

	var store contract.PointStore
	var opts []parser.Option
	if withStore {
		if h.mgr == nil || h.mgr.Points() == nil {
			return nil, nil, fmt.Errorf("no store configured")
		}
		store = h.mgr.Points()
		if runs := h.mgr.Runs(); runs != nil {
			opts = append(opts, parser.WithRunStore(runs))
		}
	}

	p, err := parser.New(index, cfg.Period, fetcher, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func (h *toolHandler) handleGetIndexData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, cfg, err := h.buildParser(request, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	points, err := p.GetData(ctx, cfg.Last)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(map[string]any{
		"unit":   p.Key().Unit(),
		"period": p.Key().Period,
		"points": points,
	}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSaveIndexData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, cfg, err := h.buildParser(request, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	result, err := p.SaveToDB(ctx, cfg.Last)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleLoadIndexData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index := request.GetString("index", "")
	if err := contract.ValidateUnitName(index); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	start, end, err := contract.ParseRange(request.GetString("start", ""), request.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if h.mgr == nil || h.mgr.Points() == nil {
		return mcp.NewToolResultError("load failed: no store configured"), nil
	}

	points, err := h.mgr.Points().Load(ctx, index, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(map[string]any{
		"unit":   schema.UnitName(index),
		"count":  len(points),
		"points": points,
	}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
