package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moolen/magma/internal/store"
)

func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.GetStatistics(ctx)
	if err != nil {
		return errResult("get_statistics", err), nil
	}
	body, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return errResult("get_statistics", err), nil
	}
	return textResult(string(body)), nil
}

// scopeLabels maps a clear_graph scope name to the node labels it removes.
// "all" is handled separately via store.Adapter.ClearGraph, which also
// drops cross-links that don't carry one of these primary labels.
var scopeLabels = map[string][]store.NodeLabel{
	"semantic": {store.LabelConcept},
	"entity":   {store.LabelEntity},
	"temporal": {store.LabelTemporalEvent, store.LabelTemporalFact},
	"causal":   {store.LabelCausalNode},
}

func (s *Server) handleClearGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	scope := requireString(args, "graph", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	if scope != "all" {
		if _, ok := scopeLabels[scope]; !ok {
			errs.add("graph", "must be one of semantic, entity, temporal, causal, all")
			return validationResult(errs), nil
		}
	}

	if scope == "all" {
		if err := s.store.ClearGraph(ctx); err != nil {
			return errResult("clear_graph", err), nil
		}
		return textResult(`{"cleared":"all"}`), nil
	}

	for _, label := range scopeLabels[scope] {
		q := store.Query{Text: fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", label)}
		if _, err := s.store.Query(ctx, q); err != nil {
			return errResult("clear_graph", err), nil
		}
	}
	return textResult(fmt.Sprintf(`{"cleared":%q}`, scope)), nil
}
