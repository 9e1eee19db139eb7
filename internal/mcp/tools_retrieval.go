package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/linearize"
	"github.com/moolen/magma/internal/merge"
	"github.com/moolen/magma/internal/store"
)

func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	query := requireString(args, "query", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	limit := optionalInt(args, "limit", 10)
	minScore := optionalFloat(args, "min_score", 0)

	matches, err := s.semantic.SearchWithEntities(ctx, query, limit)
	if err != nil {
		return errResult("semantic_search", err), nil
	}

	filtered := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		if m.Score < minScore {
			continue
		}
		filtered = append(filtered, map[string]interface{}{
			"concept":             m.Concept,
			"score":               m.Score,
			"linked_entity_ids":   m.LinkedEntityIDs,
			"linked_entity_names": m.LinkedEntityNames,
		})
	}
	return jsonResult("semantic_search", map[string]interface{}{"matches": filtered})
}

func (s *Server) handleEntityLookup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	entityIDs := requireStringSlice(args, "entity_ids", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	depth := optionalInt(args, "depth", 1)
	if depth < 1 {
		depth = 1
	}

	visited := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		visited[id] = true
	}

	var nodes []merge.Node
	for _, id := range entityIDs {
		neighborIDs, err := s.entity.Neighbors(ctx, id, depth)
		if err != nil {
			continue
		}
		for _, nid := range neighborIDs {
			if visited[nid] {
				continue
			}
			visited[nid] = true
			ent, err := s.entity.GetEntity(ctx, nid)
			if err != nil {
				continue
			}
			score := 1.0
			nodes = append(nodes, merge.Node{UUID: nid, Data: entityData(ent), Score: &score})
		}
	}

	return jsonResult("entity_lookup", toWireView(merge.GraphView{Source: store.SourceEntity, Nodes: nodes}))
}

func (s *Server) handleTemporalExpand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	entityIDs := requireStringSlice(args, "entity_ids", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}

	timeline, err := s.temporal.QueryTimelineForEntities(ctx, entityIDs)
	if err != nil {
		return errResult("temporal_expand", err), nil
	}

	seen := make(map[string]bool)
	var nodes []merge.Node
	for _, events := range timeline {
		for _, ev := range events {
			if seen[ev.UUID] {
				continue
			}
			seen[ev.UUID] = true
			score := 1.0
			nodes = append(nodes, merge.Node{UUID: ev.UUID, Data: eventData(ev), Score: &score})
		}
	}

	return jsonResult("temporal_expand", toWireView(merge.GraphView{Source: store.SourceTemporal, Nodes: nodes}))
}

func (s *Server) handleCausalExpand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	entityIDs := requireStringSlice(args, "entity_ids", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	direction := optionalString(args, "direction", "both")
	depth := optionalInt(args, "depth", 2)

	anchors, err := s.causal.GetNodesForEntities(ctx, entityIDs)
	if err != nil {
		return errResult("causal_expand", err), nil
	}
	if len(anchors) == 0 {
		return jsonResult("causal_expand", toWireView(merge.GraphView{Source: store.SourceCausal}))
	}
	anchorIDs := make([]string, len(anchors))
	for i, a := range anchors {
		anchorIDs[i] = a.UUID
	}

	scored, err := s.causal.TraverseFromNodeIdsScored(ctx, anchorIDs, direction, depth)
	if err != nil {
		return errResult("causal_expand", err), nil
	}

	nodes := make([]merge.Node, 0, len(scored))
	for _, sn := range scored {
		node, err := s.causal.GetNode(ctx, sn.UUID)
		if err != nil {
			continue
		}
		score := sn.Confidence
		nodes = append(nodes, merge.Node{UUID: sn.UUID, Data: causalNodeData(node), Score: &score})
	}

	return jsonResult("causal_expand", toWireView(merge.GraphView{Source: store.SourceCausal, Nodes: nodes}))
}

// wireGraphView is the JSON shape subgraph_merge and linearize_context
// accept for a view/node, since merge.GraphView's Source and Node's Score
// are not directly json-tagged.
type wireGraphView struct {
	Source string     `json:"source"`
	Nodes  []wireNode `json:"nodes"`
}

type wireNode struct {
	UUID  string                 `json:"uuid"`
	Data  map[string]interface{} `json:"data"`
	Score *float64               `json:"score"`
}

func toGraphView(v wireGraphView) merge.GraphView {
	nodes := make([]merge.Node, len(v.Nodes))
	for i, n := range v.Nodes {
		nodes[i] = merge.Node{UUID: n.UUID, Data: n.Data, Score: n.Score}
	}
	return merge.GraphView{Source: store.GraphSource(v.Source), Nodes: nodes}
}

func toWireView(v merge.GraphView) wireGraphView {
	nodes := make([]wireNode, len(v.Nodes))
	for i, n := range v.Nodes {
		nodes[i] = wireNode{UUID: n.UUID, Data: n.Data, Score: n.Score}
	}
	return wireGraphView{Source: string(v.Source), Nodes: nodes}
}

func (s *Server) handleSubgraphMerge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	rawViews, ok := args["views"].([]interface{})
	if !ok || len(rawViews) == 0 {
		var errs argErrors
		errs.add("views", "must be a non-empty array of graph views")
		return validationResult(errs), nil
	}

	views := make([]merge.GraphView, 0, len(rawViews))
	for i, rv := range rawViews {
		wv, err := decodeWireView(rv)
		if err != nil {
			var errs argErrors
			errs.add(pathIndex("views", i), "%v", err)
			return validationResult(errs), nil
		}
		views = append(views, toGraphView(wv))
	}

	opts := merge.DefaultOptions()
	if boost := optionalFloat(args, "multi_view_boost", 0); boost > 0 {
		opts.MultiViewBoost = boost
	}

	merged, err := merge.Merge(views, opts)
	if err != nil {
		return errResult("subgraph_merge", err), nil
	}
	if minScore := optionalFloat(args, "min_score", 0); minScore > 0 {
		merged = merge.FilterByScore(merged, minScore)
	}

	return jsonResult("subgraph_merge", toWireSubgraph(merged))
}

func (s *Server) handleLinearizeContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argumentsOf(request)
	var errs argErrors
	itType := requireString(args, "intent", &errs)
	if !errs.ok() {
		return validationResult(errs), nil
	}
	maxTokens := optionalInt(args, "max_tokens", linearize.DefaultMaxTokens)

	subgraphRaw, ok := args["subgraph"].(map[string]interface{})
	if !ok {
		errs.add("subgraph", "is required")
		return validationResult(errs), nil
	}
	subgraph, err := decodeWireSubgraph(subgraphRaw)
	if err != nil {
		errs.add("subgraph", "%v", err)
		return validationResult(errs), nil
	}

	linearized, err := linearize.Linearize(subgraph, intent.Type(itType), maxTokens)
	if err != nil {
		return errResult("linearize_context", err), nil
	}
	return jsonResult("linearize_context", linearized)
}
