// Package linearize turns a merged subgraph into a token-budgeted text
// block shaped by the query's classified intent.
package linearize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/merge"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

const (
	DefaultMaxTokens = 4000
	minMaxTokens     = 100
	maxMaxTokens     = 100000

	truncationMarker = "\n[... additional context truncated ...]"
)

// Strategy names one of the four node-ordering/formatting modes.
type Strategy string

const (
	StrategyCausalChain   Strategy = "causal_chain"
	StrategyTemporal      Strategy = "temporal"
	StrategyEntityGrouped Strategy = "entity_grouped"
	StrategyScoreRanked   Strategy = "score_ranked"
)

var headers = map[Strategy]string{
	StrategyCausalChain:   "## Causal Analysis Context\nThe following shows cause-and-effect relationships:\n",
	StrategyTemporal:      "## Temporal Context\nThe following events are ordered chronologically:\n",
	StrategyEntityGrouped: "## Entity Context\nThe following entities are relevant to your query:\n",
	StrategyScoreRanked:   "## Retrieved Context\nThe following information is relevant to your query:\n",
}

// strategyForIntent implements the WHY/WHEN/WHO-WHAT/EXPLORE table. WHO
// and WHAT both select entity_grouped but keep their own header variant,
// chosen in headerForIntent, since WHO and WHAT use distinct section
// titles in the bit-exact header set.
func strategyForIntent(t intent.Type) Strategy {
	switch t {
	case intent.Why:
		return StrategyCausalChain
	case intent.When:
		return StrategyTemporal
	case intent.Who, intent.What:
		return StrategyEntityGrouped
	default:
		return StrategyScoreRanked
	}
}

func headerForIntent(t intent.Type, strategy Strategy) string {
	if t == intent.What {
		return "## Descriptive Context\nThe following information describes the subject:\n"
	}
	return headers[strategy]
}

// LinearizedContext is the linearizer's output.
type LinearizedContext struct {
	Text            string
	NodeCount       int
	Strategy        Strategy
	EstimatedTokens int
}

// EstimateTokens applies the documented token estimate: ceil(len(text)/4).
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / 4.0))
}

// Linearize transforms subgraph into a LinearizedContext for the given
// intent, honoring maxTokens (default 4000 when zero; any other value
// outside [100,100000] is rejected with a validation error).
func Linearize(subgraph merge.MergedSubgraph, it intent.Type, maxTokens int) (LinearizedContext, error) {
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens < minMaxTokens || maxTokens > maxMaxTokens {
		return LinearizedContext{}, merrors.New(merrors.KindValidation, "linearize.validate", "maxTokens must be in [100,100000]")
	}

	strategy := strategyForIntent(it)
	ordered := order(subgraph.Nodes, strategy)
	header := headerForIntent(it, strategy)

	var b strings.Builder
	b.WriteString(header)

	budget := maxTokens
	included := 0
	truncated := false

	for _, n := range ordered {
		bullet := formatBullet(n, strategy)
		cost := EstimateTokens(bullet)
		if EstimateTokens(b.String())+cost > budget {
			truncated = true
			break
		}
		b.WriteString(bullet)
		included++
	}

	if truncated {
		b.WriteString(truncationMarker)
	}

	footer := formatFooter(subgraph.ViewContributions, included)
	if EstimateTokens(b.String())+EstimateTokens(footer) <= budget {
		b.WriteString(footer)
	}

	text := b.String()
	return LinearizedContext{
		Text:            text,
		NodeCount:       included,
		Strategy:        strategy,
		EstimatedTokens: EstimateTokens(text),
	}, nil
}

func order(nodes []merge.ScoredNode, strategy Strategy) []merge.ScoredNode {
	out := make([]merge.ScoredNode, len(nodes))
	copy(out, nodes)

	switch strategy {
	case StrategyScoreRanked:
		sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	case StrategyCausalChain:
		sort.SliceStable(out, func(i, j int) bool {
			ic, jc := hasView(out[i], "causal"), hasView(out[j], "causal")
			if ic != jc {
				return ic
			}
			return out[i].FinalScore > out[j].FinalScore
		})
	case StrategyTemporal:
		sort.SliceStable(out, func(i, j int) bool {
			it, jt := hasView(out[i], "temporal"), hasView(out[j], "temporal")
			if it != jt {
				return it
			}
			di, iok := dateOf(out[i].Data)
			dj, jok := dateOf(out[j].Data)
			if iok && jok {
				ti, errI := facades.ParseInstant(di)
				tj, errJ := facades.ParseInstant(dj)
				if errI == nil && errJ == nil && !ti.Equal(tj) {
					return ti.Before(tj)
				}
			}
			return out[i].FinalScore > out[j].FinalScore
		})
	case StrategyEntityGrouped:
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := typeOf(out[i].Data), typeOf(out[j].Data)
			if ti != tj {
				return ti < tj
			}
			return out[i].FinalScore > out[j].FinalScore
		})
	}
	return out
}

func hasView(n merge.ScoredNode, source string) bool {
	for v := range n.Views {
		if string(v) == source {
			return true
		}
	}
	return false
}

func display(data map[string]interface{}, uuid string) string {
	for _, key := range []string{"name", "description", "content"} {
		if v, ok := stringField(data, key); ok && v != "" {
			return v
		}
	}
	return uuid
}

func typeOf(data map[string]interface{}) string {
	for _, key := range []string{"entity_type", "node_type", "type"} {
		if v, ok := stringField(data, key); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

func dateOf(data map[string]interface{}) (string, bool) {
	for _, key := range []string{"occurred_at", "valid_from", "created_at", "date", "timestamp"} {
		if v, ok := stringField(data, key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func stringField(data map[string]interface{}, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

func formatBullet(n merge.ScoredNode, strategy Strategy) string {
	disp := display(n.Data, n.UUID)
	typ := typeOf(n.Data)

	var b strings.Builder
	fmt.Fprintf(&b, "- **%s** (%s)\n", disp, typ)

	if strategy == StrategyCausalChain {
		if v, ok := stringField(n.Data, "confidence"); ok {
			fmt.Fprintf(&b, "  Confidence: %s\n", v)
		}
	}
	if strategy == StrategyTemporal {
		if v, ok := dateOf(n.Data); ok {
			fmt.Fprintf(&b, "  Date: %s\n", v)
		}
	}

	if desc, ok := stringField(n.Data, "description"); ok && desc != disp {
		truncated := desc
		if len(truncated) > 200 {
			truncated = truncated[:200]
		}
		fmt.Fprintf(&b, "  %s\n", truncated)
	}

	views := make([]string, 0, len(n.Views))
	for v := range n.Views {
		views = append(views, string(v))
	}
	sort.Strings(views)
	fmt.Fprintf(&b, "  [Found in: %s]\n", strings.Join(views, ", "))

	return b.String()
}

func formatFooter(contributions map[store.GraphSource]int, included int) string {
	return fmt.Sprintf("\n---\nSources: %s | Total nodes: %d", sourcesSummary(contributions), included)
}

func sourcesSummary(contributions map[store.GraphSource]int) string {
	order := []store.GraphSource{store.SourceSemantic, store.SourceEntity, store.SourceTemporal, store.SourceCausal}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		if n, ok := contributions[s]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", s, n))
		}
	}
	return strings.Join(parts, ", ")
}
