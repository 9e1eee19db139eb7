package linearize

import (
	"strings"
	"testing"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/merge"
	"github.com/moolen/magma/internal/store"
)

func node(uuid string, data map[string]interface{}, score float64, views ...store.GraphSource) merge.ScoredNode {
	vset := make(map[store.GraphSource]struct{}, len(views))
	for _, v := range views {
		vset[v] = struct{}{}
	}
	return merge.ScoredNode{UUID: uuid, Data: data, ViewCount: len(views), Views: vset, FinalScore: score}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(4 chars) = %d, want 1", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("EstimateTokens(5 chars) = %d, want 2", got)
	}
}

func TestLinearizeHeaderByIntent(t *testing.T) {
	tests := []struct {
		it   intent.Type
		want string
	}{
		{intent.Why, "## Causal Analysis Context"},
		{intent.When, "## Temporal Context"},
		{intent.Who, "## Entity Context"},
		{intent.What, "## Descriptive Context"},
		{intent.Explore, "## Retrieved Context"},
	}
	for _, tt := range tests {
		subgraph := merge.MergedSubgraph{ViewContributions: map[store.GraphSource]int{}}
		out, err := Linearize(subgraph, tt.it, 0)
		if err != nil {
			t.Fatalf("Linearize(%s) error = %v", tt.it, err)
		}
		if !strings.HasPrefix(out.Text, tt.want) {
			t.Errorf("Linearize(%s).Text = %q, want prefix %q", tt.it, out.Text, tt.want)
		}
	}
}

func TestLinearizeStrategySelection(t *testing.T) {
	tests := []struct {
		it   intent.Type
		want Strategy
	}{
		{intent.Why, StrategyCausalChain},
		{intent.When, StrategyTemporal},
		{intent.Who, StrategyEntityGrouped},
		{intent.What, StrategyEntityGrouped},
		{intent.Explore, StrategyScoreRanked},
	}
	for _, tt := range tests {
		subgraph := merge.MergedSubgraph{}
		out, err := Linearize(subgraph, tt.it, 0)
		if err != nil {
			t.Fatalf("Linearize(%s) error = %v", tt.it, err)
		}
		if out.Strategy != tt.want {
			t.Errorf("Linearize(%s).Strategy = %s, want %s", tt.it, out.Strategy, tt.want)
		}
	}
}

func TestLinearizeScoreRankedOrder(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes: []merge.ScoredNode{
			node("a", map[string]interface{}{"name": "A"}, 0.2, store.SourceSemantic),
			node("b", map[string]interface{}{"name": "B"}, 0.9, store.SourceSemantic),
		},
		ViewContributions: map[store.GraphSource]int{store.SourceSemantic: 2},
	}
	out, err := Linearize(subgraph, intent.Explore, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	if idxB, idxA := strings.Index(out.Text, "**B**"), strings.Index(out.Text, "**A**"); idxB == -1 || idxA == -1 || idxB > idxA {
		t.Errorf("expected B before A in %q", out.Text)
	}
	if out.NodeCount != 2 {
		t.Errorf("NodeCount = %d, want 2", out.NodeCount)
	}
}

func TestLinearizeCausalChainOrdersCausalFirst(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes: []merge.ScoredNode{
			node("a", map[string]interface{}{"name": "A"}, 0.95, store.SourceSemantic),
			node("b", map[string]interface{}{"name": "B", "confidence": "0.8"}, 0.1, store.SourceCausal),
		},
	}
	out, err := Linearize(subgraph, intent.Why, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	idxB, idxA := strings.Index(out.Text, "**B**"), strings.Index(out.Text, "**A**")
	if idxB == -1 || idxA == -1 || idxB > idxA {
		t.Errorf("expected causal node B before A in %q", out.Text)
	}
	if !strings.Contains(out.Text, "Confidence: 0.8") {
		t.Errorf("expected confidence line in %q", out.Text)
	}
}

func TestLinearizeTemporalOrdersByDate(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes: []merge.ScoredNode{
			node("later", map[string]interface{}{"name": "Later", "occurred_at": "2024-06-15T00:00:00Z"}, 0.9, store.SourceTemporal),
			node("earlier", map[string]interface{}{"name": "Earlier", "occurred_at": "2024-01-01T00:00:00Z"}, 0.8, store.SourceTemporal),
		},
	}
	out, err := Linearize(subgraph, intent.When, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	idxEarlier, idxLater := strings.Index(out.Text, "**Earlier**"), strings.Index(out.Text, "**Later**")
	if idxEarlier == -1 || idxLater == -1 || idxEarlier > idxLater {
		t.Errorf("expected Earlier before Later in %q", out.Text)
	}
	if !strings.Contains(out.Text, "Date: 2024-01-01T00:00:00Z") {
		t.Errorf("expected date line in %q", out.Text)
	}
}

func TestLinearizeEntityGroupedOrdersByType(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes: []merge.ScoredNode{
			node("svc", map[string]interface{}{"name": "Svc", "entity_type": "service"}, 0.5, store.SourceEntity),
			node("db", map[string]interface{}{"name": "DB", "entity_type": "database"}, 0.1, store.SourceEntity),
		},
	}
	out, err := Linearize(subgraph, intent.Who, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	idxDB, idxSvc := strings.Index(out.Text, "**DB**"), strings.Index(out.Text, "**Svc**")
	if idxDB == -1 || idxSvc == -1 || idxDB > idxSvc {
		t.Errorf("expected database-typed node before service-typed node in %q", out.Text)
	}
}

func TestLinearizeDisplayFallsBackToUUID(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes: []merge.ScoredNode{node("uuid-123", map[string]interface{}{}, 0.5, store.SourceEntity)},
	}
	out, err := Linearize(subgraph, intent.Explore, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	if !strings.Contains(out.Text, "**uuid-123**") {
		t.Errorf("expected uuid fallback display in %q", out.Text)
	}
}

func TestLinearizeTruncatesAtBudget(t *testing.T) {
	nodes := make([]merge.ScoredNode, 50)
	for i := range nodes {
		nodes[i] = node("uuid-padding-node-number", map[string]interface{}{
			"description": strings.Repeat("x", 150),
		}, 1.0-float64(i)*0.001, store.SourceSemantic)
	}
	subgraph := merge.MergedSubgraph{Nodes: nodes}

	out, err := Linearize(subgraph, intent.Explore, minMaxTokens)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	if !strings.Contains(out.Text, truncationMarker) {
		t.Errorf("expected truncation marker in output, got %q", out.Text)
	}
	if out.NodeCount >= len(nodes) {
		t.Errorf("NodeCount = %d, want fewer than %d", out.NodeCount, len(nodes))
	}
	if out.EstimatedTokens > minMaxTokens+EstimateTokens(truncationMarker)+50 {
		t.Errorf("EstimatedTokens = %d, budget exceeded by a wide margin", out.EstimatedTokens)
	}
}

func TestLinearizeFooterReflectsContributions(t *testing.T) {
	subgraph := merge.MergedSubgraph{
		Nodes:             []merge.ScoredNode{node("a", map[string]interface{}{"name": "A"}, 0.5, store.SourceSemantic)},
		ViewContributions: map[store.GraphSource]int{store.SourceSemantic: 1, store.SourceEntity: 0, store.SourceTemporal: 0, store.SourceCausal: 0},
	}
	out, err := Linearize(subgraph, intent.Explore, 0)
	if err != nil {
		t.Fatalf("Linearize() error = %v", err)
	}
	if !strings.Contains(out.Text, "Sources: semantic: 1, entity: 0, temporal: 0, causal: 0 | Total nodes: 1") {
		t.Errorf("unexpected footer in %q", out.Text)
	}
}

func TestLinearizeRejectsMaxTokensOutOfRange(t *testing.T) {
	subgraph := merge.MergedSubgraph{}
	if _, err := Linearize(subgraph, intent.Explore, 50); err == nil {
		t.Error("Linearize() with maxTokens below minimum, want error")
	}
	if _, err := Linearize(subgraph, intent.Explore, 200000); err == nil {
		t.Error("Linearize() with maxTokens above maximum, want error")
	}
}
