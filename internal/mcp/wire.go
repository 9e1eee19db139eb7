package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/moolen/magma/internal/merge"
	"github.com/moolen/magma/internal/store"
)

// decodeWireView re-decodes a views[i] element (already unmarshaled once
// into interface{} by the MCP transport) into wireGraphView, so callers
// that assembled it by hand need only follow the GraphView{Source,
// Nodes:[{uuid,data,score}]} shape rather than every unexported field of
// merge.GraphView.
func decodeWireView(v interface{}) (wireGraphView, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return wireGraphView{}, fmt.Errorf("not serializable: %w", err)
	}
	var wv wireGraphView
	if err := json.Unmarshal(body, &wv); err != nil {
		return wireGraphView{}, fmt.Errorf("expected {source, nodes}: %w", err)
	}
	return wv, nil
}

// wireScoredNode and wireSubgraph mirror merge.MergedSubgraph's public
// shape for linearize_context callers that pass back a subgraph_merge
// result (or hand-assemble an equivalent one).
type wireScoredNode struct {
	UUID       string                 `json:"uuid"`
	Data       map[string]interface{} `json:"data"`
	ViewCount  int                    `json:"viewCount"`
	Views      []string               `json:"views"`
	FinalScore float64                `json:"finalScore"`
}

type wireSubgraph struct {
	Nodes             []wireScoredNode `json:"nodes"`
	ViewContributions map[string]int   `json:"viewContributions"`
}

func decodeWireSubgraph(raw map[string]interface{}) (merge.MergedSubgraph, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return merge.MergedSubgraph{}, fmt.Errorf("not serializable: %w", err)
	}
	var ws wireSubgraph
	if err := json.Unmarshal(body, &ws); err != nil {
		return merge.MergedSubgraph{}, fmt.Errorf("expected {nodes, viewContributions}: %w", err)
	}

	nodes := make([]merge.ScoredNode, len(ws.Nodes))
	for i, n := range ws.Nodes {
		views := make(map[store.GraphSource]struct{}, len(n.Views))
		for _, v := range n.Views {
			views[store.GraphSource(v)] = struct{}{}
		}
		nodes[i] = merge.ScoredNode{
			UUID:       n.UUID,
			Data:       n.Data,
			ViewCount:  n.ViewCount,
			Views:      views,
			FinalScore: n.FinalScore,
		}
	}

	contributions := make(map[store.GraphSource]int, len(ws.ViewContributions))
	for k, v := range ws.ViewContributions {
		contributions[store.GraphSource(k)] = v
	}

	return merge.MergedSubgraph{Nodes: nodes, ViewContributions: contributions}, nil
}

func pathIndex(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

// toWireSubgraph renders a MergedSubgraph in the same shape
// decodeWireSubgraph expects, so a subgraph_merge result can be passed
// straight into linearize_context without any client-side reshaping.
func toWireSubgraph(m merge.MergedSubgraph) wireSubgraph {
	nodes := make([]wireScoredNode, len(m.Nodes))
	for i, n := range m.Nodes {
		views := make([]string, 0, len(n.Views))
		for v := range n.Views {
			views = append(views, string(v))
		}
		nodes[i] = wireScoredNode{
			UUID:       n.UUID,
			Data:       n.Data,
			ViewCount:  n.ViewCount,
			Views:      views,
			FinalScore: n.FinalScore,
		}
	}
	contributions := make(map[string]int, len(m.ViewContributions))
	for k, v := range m.ViewContributions {
		contributions[string(k)] = v
	}
	return wireSubgraph{Nodes: nodes, ViewContributions: contributions}
}
