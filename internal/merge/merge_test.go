package merge

import (
	"testing"

	"github.com/moolen/magma/internal/store"
)

func score(v float64) *float64 { return &v }

func TestMergeSingleViewAverages(t *testing.T) {
	views := []GraphView{
		{Source: store.SourceSemantic, Nodes: []Node{
			{UUID: "a", Data: map[string]interface{}{"name": "A"}, Score: score(0.8)},
			{UUID: "b", Data: map[string]interface{}{"name": "B"}, Score: score(0.4)},
		}},
	}

	merged, err := Merge(views, DefaultOptions())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(merged.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(merged.Nodes))
	}
	if merged.Nodes[0].UUID != "a" {
		t.Errorf("Nodes[0].UUID = %q, want a (higher score first)", merged.Nodes[0].UUID)
	}
	if merged.Nodes[0].ViewCount != 1 {
		t.Errorf("Nodes[0].ViewCount = %d, want 1", merged.Nodes[0].ViewCount)
	}
	if merged.ViewContributions[store.SourceSemantic] != 2 {
		t.Errorf("ViewContributions[semantic] = %d, want 2", merged.ViewContributions[store.SourceSemantic])
	}
	if merged.ViewContributions[store.SourceEntity] != 0 {
		t.Errorf("ViewContributions[entity] = %d, want 0", merged.ViewContributions[store.SourceEntity])
	}
}

func TestMergeBoostsMultiViewNodes(t *testing.T) {
	views := []GraphView{
		{Source: store.SourceSemantic, Nodes: []Node{{UUID: "a", Score: score(0.5)}}},
		{Source: store.SourceEntity, Nodes: []Node{{UUID: "a", Score: score(0.5)}, {UUID: "b", Score: score(0.9)}}},
	}

	opts := DefaultOptions()
	opts.MultiViewBoost = 1.5
	merged, err := Merge(views, opts)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	var a, b ScoredNode
	for _, n := range merged.Nodes {
		switch n.UUID {
		case "a":
			a = n
		case "b":
			b = n
		}
	}

	if a.ViewCount != 2 {
		t.Errorf("a.ViewCount = %d, want 2", a.ViewCount)
	}
	wantA := 0.5 * 1.5
	if diff := a.FinalScore - wantA; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("a.FinalScore = %v, want %v", a.FinalScore, wantA)
	}
	if b.ViewCount != 1 || b.FinalScore != 0.9 {
		t.Errorf("b = %+v, want ViewCount=1 FinalScore=0.9", b)
	}
	// a's boosted score (0.75) should rank below b's 0.9.
	if merged.Nodes[0].UUID != "b" {
		t.Errorf("Nodes[0].UUID = %q, want b", merged.Nodes[0].UUID)
	}
}

func TestMergeMissingScoreDefaultsToOne(t *testing.T) {
	views := []GraphView{
		{Source: store.SourceTemporal, Nodes: []Node{{UUID: "a"}}},
	}
	merged, err := Merge(views, DefaultOptions())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.Nodes[0].FinalScore != 1.0 {
		t.Errorf("FinalScore = %v, want 1.0", merged.Nodes[0].FinalScore)
	}
}

func TestMergeCapsNodesPerView(t *testing.T) {
	nodes := make([]Node, 5)
	for i := range nodes {
		nodes[i] = Node{UUID: string(rune('a' + i)), Score: score(1.0)}
	}
	views := []GraphView{{Source: store.SourceEntity, Nodes: nodes}}

	opts := DefaultOptions()
	opts.MaxNodesPerView = 2
	merged, err := Merge(views, opts)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(merged.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(merged.Nodes))
	}
	if merged.ViewContributions[store.SourceEntity] != 2 {
		t.Errorf("ViewContributions[entity] = %d, want 2", merged.ViewContributions[store.SourceEntity])
	}
}

func TestMergeEmptyViewsReturnsEmptySubgraph(t *testing.T) {
	merged, err := Merge(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(merged.Nodes) != 0 {
		t.Errorf("len(Nodes) = %d, want 0", len(merged.Nodes))
	}
	for _, s := range []store.GraphSource{store.SourceSemantic, store.SourceEntity, store.SourceTemporal, store.SourceCausal} {
		if merged.ViewContributions[s] != 0 {
			t.Errorf("ViewContributions[%s] = %d, want 0", s, merged.ViewContributions[s])
		}
	}
}

func TestMergeRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"boost too high", Options{MultiViewBoost: 11, MaxNodesPerView: 50}},
		{"minNodes negative", Options{MultiViewBoost: 1.5, MinNodesPerView: -1, MaxNodesPerView: 50}},
		{"maxNodes zero via explicit negative", Options{MultiViewBoost: 1.5, MaxNodesPerView: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Merge(nil, tt.opts); err == nil {
				t.Error("Merge() error = nil, want error")
			}
		})
	}
}

func TestMergeRejectsNodeWithoutUUID(t *testing.T) {
	views := []GraphView{{Source: store.SourceEntity, Nodes: []Node{{UUID: ""}}}}
	if _, err := Merge(views, DefaultOptions()); err == nil {
		t.Error("Merge() error = nil, want error for missing uuid")
	}
}

func TestTopN(t *testing.T) {
	merged := MergedSubgraph{Nodes: []ScoredNode{{UUID: "a"}, {UUID: "b"}, {UUID: "c"}}}
	top := TopN(merged, 2)
	if len(top.Nodes) != 2 || top.Nodes[0].UUID != "a" || top.Nodes[1].UUID != "b" {
		t.Errorf("TopN(2) = %+v", top.Nodes)
	}
	if len(TopN(merged, 0).Nodes) != 0 {
		t.Error("TopN(0) should be empty")
	}
	if len(TopN(merged, -1).Nodes) != 0 {
		t.Error("TopN(-1) should be empty")
	}
	if len(TopN(merged, 10).Nodes) != 3 {
		t.Error("TopN(10) should clamp to len(Nodes)")
	}
}

func TestFilterByViewCount(t *testing.T) {
	merged := MergedSubgraph{Nodes: []ScoredNode{{UUID: "a", ViewCount: 1}, {UUID: "b", ViewCount: 2}}}
	filtered := FilterByViewCount(merged, 2)
	if len(filtered.Nodes) != 1 || filtered.Nodes[0].UUID != "b" {
		t.Errorf("FilterByViewCount(2) = %+v", filtered.Nodes)
	}
}

func TestFilterByScore(t *testing.T) {
	merged := MergedSubgraph{Nodes: []ScoredNode{{UUID: "a", FinalScore: 0.2}, {UUID: "b", FinalScore: 0.8}}}
	filtered := FilterByScore(merged, 0.5)
	if len(filtered.Nodes) != 1 || filtered.Nodes[0].UUID != "b" {
		t.Errorf("FilterByScore(0.5) = %+v", filtered.Nodes)
	}
}

func TestGetNodesFromView(t *testing.T) {
	merged := MergedSubgraph{Nodes: []ScoredNode{
		{UUID: "a", Views: map[store.GraphSource]struct{}{store.SourceEntity: {}}},
		{UUID: "b", Views: map[store.GraphSource]struct{}{store.SourceCausal: {}}},
	}}
	fromEntity := GetNodesFromView(merged, store.SourceEntity)
	if len(fromEntity) != 1 || fromEntity[0].UUID != "a" {
		t.Errorf("GetNodesFromView(entity) = %+v", fromEntity)
	}
}

func TestHasMinimumNodes(t *testing.T) {
	merged := MergedSubgraph{ViewContributions: map[store.GraphSource]int{
		store.SourceSemantic: 5, store.SourceEntity: 1,
	}}
	if HasMinimumNodes(merged, 3) {
		t.Error("HasMinimumNodes(3) = true, want false (entity view has only 1)")
	}
	if !HasMinimumNodes(merged, 1) {
		t.Error("HasMinimumNodes(1) = false, want true")
	}
}

func TestMergeDeterministicTieBreak(t *testing.T) {
	views := []GraphView{
		{Source: store.SourceEntity, Nodes: []Node{
			{UUID: "a", Score: score(0.5)},
			{UUID: "b", Score: score(0.5)},
			{UUID: "c", Score: score(0.5)},
		}},
	}
	var first []string
	for i := 0; i < 5; i++ {
		merged, err := Merge(views, DefaultOptions())
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		var order []string
		for _, n := range merged.Nodes {
			order = append(order, n.UUID)
		}
		if first == nil {
			first = order
			continue
		}
		for j := range order {
			if order[j] != first[j] {
				t.Fatalf("tie-break order not deterministic: got %v, want %v", order, first)
			}
		}
	}
}
