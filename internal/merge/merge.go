// Package merge combines the per-graph views produced by a MAGMA
// expansion into a single ranked subgraph.
package merge

import (
	"fmt"
	"sort"

	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// Node is a single node contributed by a graph expansion, carrying an
// optional relevance score from its source view.
type Node struct {
	UUID  string
	Data  map[string]interface{}
	Score *float64
}

// GraphView is one source graph's contribution to a merge.
type GraphView struct {
	Source store.GraphSource
	Nodes  []Node
}

// ScoredNode is a node after merge: its score averaged across every view
// that contributed it, boosted for appearing in more than one view.
type ScoredNode struct {
	UUID       string
	Data       map[string]interface{}
	ViewCount  int
	Views      map[store.GraphSource]struct{}
	FinalScore float64

	firstSeen int // insertion order, used only for a deterministic tie-break
}

// MergedSubgraph is the output of Merge: nodes sorted by FinalScore
// descending, plus how many nodes each source view contributed.
type MergedSubgraph struct {
	Nodes             []ScoredNode
	ViewContributions map[store.GraphSource]int
}

const (
	DefaultMultiViewBoost  = 1.5
	DefaultMinNodesPerView = 3
	DefaultMaxNodesPerView = 50

	minMultiViewBoost = 1.0
	maxMultiViewBoost = 10.0
	minMinNodesPerView = 0
	maxMinNodesPerView = 100
	minMaxNodesPerView = 1
	maxMaxNodesPerView = 1000
)

// Options configures the merge algorithm. Normalize fills a zero
// MultiViewBoost or MaxNodesPerView with its default; a zero
// MinNodesPerView is kept, since 0 is a valid value.
type Options struct {
	MultiViewBoost  float64
	MinNodesPerView int
	MaxNodesPerView int
}

// Normalize returns a copy of o with a zero MultiViewBoost or
// MaxNodesPerView replaced by its default.
func (o Options) Normalize() Options {
	if o.MultiViewBoost == 0 {
		o.MultiViewBoost = DefaultMultiViewBoost
	}
	if o.MaxNodesPerView == 0 {
		o.MaxNodesPerView = DefaultMaxNodesPerView
	}
	return o
}

// Validate checks every option is within its documented range.
func (o Options) Validate() error {
	if o.MultiViewBoost < minMultiViewBoost || o.MultiViewBoost > maxMultiViewBoost {
		return merrors.New(merrors.KindValidation, "merge.validate", "multiViewBoost must be in [1,10]")
	}
	if o.MinNodesPerView < minMinNodesPerView || o.MinNodesPerView > maxMinNodesPerView {
		return merrors.New(merrors.KindValidation, "merge.validate", "minNodesPerView must be in [0,100]")
	}
	if o.MaxNodesPerView < minMaxNodesPerView || o.MaxNodesPerView > maxMaxNodesPerView {
		return merrors.New(merrors.KindValidation, "merge.validate", "maxNodesPerView must be in [1,1000]")
	}
	return nil
}

// DefaultOptions returns the documented default merge configuration.
func DefaultOptions() Options {
	return Options{
		MultiViewBoost:  DefaultMultiViewBoost,
		MinNodesPerView: DefaultMinNodesPerView,
		MaxNodesPerView: DefaultMaxNodesPerView,
	}
}

type accumulator struct {
	data      map[string]interface{}
	scores    []float64
	views     map[store.GraphSource]struct{}
	firstSeen int
}

// Merge combines views into a single ranked MergedSubgraph. Each view's
// nodes are capped at opts.MaxNodesPerView before accumulation. Nodes are
// keyed by uuid across views; a node's final score is the mean of every
// observed score (missing scores default to 1.0), boosted by
// MultiViewBoost^(viewCount-1) when it was contributed by more than one
// view.
func Merge(views []GraphView, opts Options) (MergedSubgraph, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return MergedSubgraph{}, err
	}
	if err := validateViews(views); err != nil {
		return MergedSubgraph{}, err
	}

	contributions := make(map[store.GraphSource]int, len(views))
	acc := make(map[string]*accumulator)
	order := make([]string, 0)

	for _, view := range views {
		nodes := view.Nodes
		if len(nodes) > opts.MaxNodesPerView {
			nodes = nodes[:opts.MaxNodesPerView]
		}
		contributions[view.Source] += len(nodes)

		for _, n := range nodes {
			score := 1.0
			if n.Score != nil {
				score = *n.Score
			}

			a, ok := acc[n.UUID]
			if !ok {
				a = &accumulator{
					data:      n.Data,
					views:     make(map[store.GraphSource]struct{}),
					firstSeen: len(order),
				}
				acc[n.UUID] = a
				order = append(order, n.UUID)
			}
			a.scores = append(a.scores, score)
			a.views[view.Source] = struct{}{}
		}
	}

	nodes := make([]ScoredNode, 0, len(order))
	for _, uuid := range order {
		a := acc[uuid]
		avg := mean(a.scores)
		viewCount := len(a.views)
		boost := 1.0
		if viewCount > 1 {
			boost = pow(opts.MultiViewBoost, viewCount-1)
		}
		nodes = append(nodes, ScoredNode{
			UUID:       uuid,
			Data:       a.data,
			ViewCount:  viewCount,
			Views:      a.views,
			FinalScore: avg * boost,
			firstSeen:  a.firstSeen,
		})
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].FinalScore != nodes[j].FinalScore {
			return nodes[i].FinalScore > nodes[j].FinalScore
		}
		return nodes[i].firstSeen < nodes[j].firstSeen
	})

	allSources := []store.GraphSource{store.SourceSemantic, store.SourceEntity, store.SourceTemporal, store.SourceCausal}
	for _, s := range allSources {
		if _, ok := contributions[s]; !ok {
			contributions[s] = 0
		}
	}

	return MergedSubgraph{Nodes: nodes, ViewContributions: contributions}, nil
}

func validateViews(views []GraphView) error {
	validSources := map[store.GraphSource]bool{
		store.SourceSemantic: true,
		store.SourceEntity:   true,
		store.SourceTemporal: true,
		store.SourceCausal:   true,
	}
	for _, v := range views {
		if !validSources[v.Source] {
			return merrors.New(merrors.KindMerge, "merge.validate",
				fmt.Sprintf("view has an unrecognized source (input view count: %d)", len(views)))
		}
		for _, n := range v.Nodes {
			if n.UUID == "" {
				return merrors.New(merrors.KindMerge, "merge.validate",
					fmt.Sprintf("view node is missing a uuid (input view count: %d)", len(views)))
			}
		}
	}
	return nil
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// HasMinimumNodes reports whether every view named in viewContributions
// met minNodesPerView, per the view's recorded contribution count.
func HasMinimumNodes(m MergedSubgraph, minNodesPerView int) bool {
	for _, count := range m.ViewContributions {
		if count < minNodesPerView {
			return false
		}
	}
	return true
}

// TopN returns the first n nodes of m, preserving ViewContributions. n < 0
// is treated as 0.
func TopN(m MergedSubgraph, n int) MergedSubgraph {
	if n < 0 {
		n = 0
	}
	if n > len(m.Nodes) {
		n = len(m.Nodes)
	}
	out := make([]ScoredNode, n)
	copy(out, m.Nodes[:n])
	return MergedSubgraph{Nodes: out, ViewContributions: m.ViewContributions}
}

// FilterByViewCount returns the subset of m.Nodes whose ViewCount is at
// least minViews, preserving ViewContributions and order.
func FilterByViewCount(m MergedSubgraph, minViews int) MergedSubgraph {
	if minViews < 1 {
		minViews = 1
	}
	out := make([]ScoredNode, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.ViewCount >= minViews {
			out = append(out, n)
		}
	}
	return MergedSubgraph{Nodes: out, ViewContributions: m.ViewContributions}
}

// FilterByScore returns the subset of m.Nodes whose FinalScore is at
// least minScore, preserving ViewContributions and order.
func FilterByScore(m MergedSubgraph, minScore float64) MergedSubgraph {
	if minScore < 0 {
		minScore = 0
	}
	out := make([]ScoredNode, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.FinalScore >= minScore {
			out = append(out, n)
		}
	}
	return MergedSubgraph{Nodes: out, ViewContributions: m.ViewContributions}
}

// GetNodesFromView returns the nodes of m whose Views set contains source.
func GetNodesFromView(m MergedSubgraph, source store.GraphSource) []ScoredNode {
	var out []ScoredNode
	for _, n := range m.Nodes {
		if _, ok := n.Views[source]; ok {
			out = append(out, n)
		}
	}
	return out
}
