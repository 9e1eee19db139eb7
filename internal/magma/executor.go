// Package magma implements the MAGMA retrieval executor: the single
// place where semantic seeding, parallel graph expansion, and subgraph
// merging are orchestrated. The configured timeout bounds the semantic
// search stage only.
package magma

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merge"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/metrics"
	"github.com/moolen/magma/internal/seeds"
	"github.com/moolen/magma/internal/store"
)

const (
	DefaultSemanticTopK     = 10
	DefaultMinSemanticScore = 0.5
	DefaultTimeout          = 5 * time.Second

	minSemanticTopK     = 1
	maxSemanticTopK     = 100
	minMinSemanticScore = 0.0
	maxMinSemanticScore = 1.0
	minTimeout          = 100 * time.Millisecond
	maxTimeout          = 60 * time.Second
)

// Config is the executor's validated tuning surface.
type Config struct {
	SemanticTopK     int
	MinSemanticScore float64
	Timeout          time.Duration
}

// DefaultConfig returns the documented default configuration.
func DefaultConfig() Config {
	return Config{
		SemanticTopK:     DefaultSemanticTopK,
		MinSemanticScore: DefaultMinSemanticScore,
		Timeout:          DefaultTimeout,
	}
}

// Normalize fills zero-valued fields with their defaults.
func (c Config) Normalize() Config {
	if c.SemanticTopK == 0 {
		c.SemanticTopK = DefaultSemanticTopK
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks every field against its documented range.
func (c Config) Validate() error {
	if c.SemanticTopK < minSemanticTopK || c.SemanticTopK > maxSemanticTopK {
		return merrors.New(merrors.KindValidation, "magma.config", "semanticTopK must be in [1,100]")
	}
	if c.MinSemanticScore < minMinSemanticScore || c.MinSemanticScore > maxMinSemanticScore {
		return merrors.New(merrors.KindValidation, "magma.config", "minSemanticScore must be in [0,1]")
	}
	if c.Timeout < minTimeout || c.Timeout > maxTimeout {
		return merrors.New(merrors.KindValidation, "magma.config", "timeout must be in [100ms,60s]")
	}
	return nil
}

// Timing records each stage's wall-clock duration in milliseconds.
type Timing struct {
	SemanticMs       int64
	SeedExtractionMs int64
	ExpansionMs      int64
	MergeMs          int64
	TotalMs          int64
}

// ExecutionResult is Execute's return value.
type ExecutionResult struct {
	Merged merge.MergedSubgraph
	Seeds  seeds.Result
	Timing Timing
}

// Executor orchestrates the semantic -> seed -> expand -> merge pipeline.
type Executor struct {
	semantic *facades.Semantic
	entity   *facades.Entity
	temporal *facades.Temporal
	causal   *facades.Causal

	config  atomic.Pointer[Config]
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// NewExecutor validates config and constructs an Executor. tracer and m
// may be nil; both are treated as disabled instrumentation.
func NewExecutor(semantic *facades.Semantic, entity *facades.Entity, temporal *facades.Temporal, causal *facades.Causal, config Config, tracer trace.Tracer, m *metrics.Metrics) (*Executor, error) {
	config = config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{
		semantic: semantic,
		entity:   entity,
		temporal: temporal,
		causal:   causal,
		logger:   logging.GetLogger("magma.executor"),
		tracer:   tracer,
		metrics:  m,
	}
	e.config.Store(&config)
	return e, nil
}

// UpdateConfig swaps in a newly validated configuration, taking effect for
// any Execute call that starts afterward. Safe to call concurrently with
// Execute.
func (e *Executor) UpdateConfig(config Config) error {
	config = config.Normalize()
	if err := config.Validate(); err != nil {
		return err
	}
	e.config.Store(&config)
	return nil
}

// cfg returns the executor's current tuning config, safe for concurrent
// use with UpdateConfig.
func (e *Executor) cfg() Config {
	return *e.config.Load()
}

// Execute runs the full pipeline for query under intent.
func (e *Executor) Execute(ctx context.Context, query string, it intent.MAGMAIntent) (ExecutionResult, error) {
	totalStart := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return ExecutionResult{}, merrors.New(merrors.KindValidation, "magma.execute", "query must not be empty")
	}
	if err := it.Validate(); err != nil {
		return ExecutionResult{}, err
	}

	ctx, span := e.startSpan(ctx, "magma.execute")
	defer span.End()
	span.SetAttributes(attribute.String("magma.intent", string(it.Type)))

	matches, semanticMs, err := e.searchSemantic(ctx, query)
	if err != nil {
		span.RecordError(err)
		return ExecutionResult{}, err
	}

	seedStart := time.Now()
	seedResult := seeds.ExtractFromEnriched(matches, e.cfg().MinSemanticScore)
	seedExtractionMs := time.Since(seedStart).Milliseconds()
	e.observe(metrics.StageSeedExtraction, seedStart)

	semanticView := semanticViewFromMatches(matches)
	entityIDs := seeds.GetEntityIDs(seedResult.EntitySeeds)

	if len(entityIDs) == 0 {
		mergeStart := time.Now()
		merged, err := merge.Merge([]merge.GraphView{semanticView}, merge.DefaultOptions())
		if err != nil {
			span.RecordError(err)
			return ExecutionResult{}, err
		}
		mergeMs := time.Since(mergeStart).Milliseconds()
		e.observe(metrics.StageMerge, mergeStart)

		return ExecutionResult{
			Merged: merged,
			Seeds:  seedResult,
			Timing: Timing{
				SemanticMs:       semanticMs,
				SeedExtractionMs: seedExtractionMs,
				ExpansionMs:      0,
				MergeMs:          mergeMs,
				TotalMs:          time.Since(totalStart).Milliseconds(),
			},
		}, nil
	}

	expandStart := time.Now()
	entityView, temporalView, causalView := e.expand(ctx, entityIDs, it.DepthHints)
	expansionMs := time.Since(expandStart).Milliseconds()

	views := []merge.GraphView{semanticView}
	for _, v := range []merge.GraphView{entityView, temporalView, causalView} {
		if len(v.Nodes) > 0 {
			views = append(views, v)
		}
	}

	mergeStart := time.Now()
	merged, err := merge.Merge(views, merge.DefaultOptions())
	if err != nil {
		span.RecordError(err)
		return ExecutionResult{}, err
	}
	mergeMs := time.Since(mergeStart).Milliseconds()
	e.observe(metrics.StageMerge, mergeStart)

	return ExecutionResult{
		Merged: merged,
		Seeds:  seedResult,
		Timing: Timing{
			SemanticMs:       semanticMs,
			SeedExtractionMs: seedExtractionMs,
			ExpansionMs:      expansionMs,
			MergeMs:          mergeMs,
			TotalMs:          time.Since(totalStart).Milliseconds(),
		},
	}, nil
}

// searchSemantic runs the semantic stage under the executor's timeout.
// A timeout or backend failure here is fatal: no seeds can be derived.
func (e *Executor) searchSemantic(ctx context.Context, query string) ([]facades.EnrichedSemanticMatch, int64, error) {
	start := time.Now()
	cfg := e.cfg()
	semCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	_, span := e.startSpan(semCtx, "magma.semantic_search")
	defer span.End()

	matches, err := e.semantic.SearchWithEntities(semCtx, query, cfg.SemanticTopK)
	elapsed := time.Since(start).Milliseconds()
	e.observe(metrics.StageSemanticSearch, start)

	if err != nil {
		kind := merrors.KindBackend
		if semCtx.Err() == context.DeadlineExceeded {
			kind = merrors.KindTimeout
		}
		span.RecordError(err)
		return nil, elapsed, merrors.Wrap(kind, "magma.semanticSearch", err)
	}
	return matches, elapsed, nil
}

func semanticViewFromMatches(matches []facades.EnrichedSemanticMatch) merge.GraphView {
	nodes := make([]merge.Node, 0, len(matches))
	for _, m := range matches {
		score := m.Score
		nodes = append(nodes, merge.Node{
			UUID:  m.Concept.UUID,
			Data:  conceptData(m.Concept),
			Score: &score,
		})
	}
	return merge.GraphView{Source: store.SourceSemantic, Nodes: nodes}
}

// expand runs the entity/temporal/causal expansions concurrently. Any one
// of them failing internally returns an empty view for that source rather
// than aborting its siblings.
func (e *Executor) expand(ctx context.Context, seedEntityIDs []string, depth intent.DepthHints) (entityView, temporalView, causalView merge.GraphView) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		entityView = e.expandEntity(gctx, seedEntityIDs, depth.Entity)
		e.observe(metrics.StageExpandEntity, start)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		temporalView = e.expandTemporal(gctx, seedEntityIDs)
		e.observe(metrics.StageExpandTemporal, start)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		causalView = e.expandCausal(gctx, seedEntityIDs, depth.Causal)
		e.observe(metrics.StageExpandCausal, start)
		return nil
	})

	_ = g.Wait()
	return
}

// expandEntity performs the bounded BFS described in the executor's
// entity-expansion algorithm: frontier starts at the seeds, each hop
// fetches relations for every unvisited id in the current level, and
// every newly discovered uuid is scored 1/(d+1). A relations-fetch
// failure for one id is swallowed; that id simply contributes nothing.
func (e *Executor) expandEntity(ctx context.Context, seedIDs []string, depth int) merge.GraphView {
	if depth < 1 {
		depth = 1
	}

	visited := make(map[string]bool, len(seedIDs))
	for _, id := range seedIDs {
		visited[id] = true
	}
	frontier := append([]string{}, seedIDs...)
	var nodes []merge.Node

	for d := 0; d < depth && len(frontier) > 0; d++ {
		score := 1.0 / float64(d+1)
		var next []string
		for _, id := range frontier {
			outgoing, incoming, err := e.entity.GetRelationships(ctx, id)
			if err != nil {
				continue
			}
			discovered := make([]string, 0, len(outgoing)+len(incoming))
			for _, rel := range outgoing {
				discovered = append(discovered, rel.ToUUID)
			}
			for _, rel := range incoming {
				discovered = append(discovered, rel.FromUUID)
			}
			for _, other := range discovered {
				if visited[other] {
					continue
				}
				visited[other] = true
				next = append(next, other)

				ent, err := e.entity.GetEntity(ctx, other)
				if err != nil {
					continue
				}
				s := score
				nodes = append(nodes, merge.Node{UUID: other, Data: entityData(ent), Score: &s})
			}
		}
		frontier = next
	}

	return merge.GraphView{Source: store.SourceEntity, Nodes: nodes}
}

// expandTemporal unions each seed entity's wide-window timeline
// (now ± 365 days), deduplicated by event uuid and scored 1.0 each.
// TODO: follow T_BEFORE/T_AFTER edges to widen the window by depth
func (e *Executor) expandTemporal(ctx context.Context, seedIDs []string) merge.GraphView {
	timelines, err := e.temporal.QueryTimelineForEntities(ctx, seedIDs)
	if err != nil {
		return merge.GraphView{Source: store.SourceTemporal}
	}

	seen := map[string]bool{}
	var nodes []merge.Node
	score := 1.0
	for _, events := range timelines {
		for _, ev := range events {
			if seen[ev.UUID] {
				continue
			}
			seen[ev.UUID] = true
			nodes = append(nodes, merge.Node{UUID: ev.UUID, Data: eventData(ev), Score: &score})
		}
	}
	return merge.GraphView{Source: store.SourceTemporal, Nodes: nodes}
}

// expandCausal resolves the causal nodes already X_AFFECTS-linked to the
// seed entities, then traverses both directions from them up to depth
// hops. Directly-linked nodes are scored 1.0; BFS-reached nodes are
// scored by the confidence of the link that first discovered them.
func (e *Executor) expandCausal(ctx context.Context, seedEntityIDs []string, depth int) merge.GraphView {
	if depth < 1 {
		depth = 1
	}

	anchors, err := e.causal.GetNodesForEntities(ctx, seedEntityIDs)
	if err != nil || len(anchors) == 0 {
		return merge.GraphView{Source: store.SourceCausal}
	}

	var nodes []merge.Node
	anchorIDs := make([]string, 0, len(anchors))
	for _, a := range anchors {
		anchorIDs = append(anchorIDs, a.UUID)
		score := 1.0
		nodes = append(nodes, merge.Node{UUID: a.UUID, Data: causalNodeData(a), Score: &score})
	}

	reached, err := e.causal.TraverseFromNodeIdsScored(ctx, anchorIDs, "both", depth)
	if err != nil {
		return merge.GraphView{Source: store.SourceCausal, Nodes: nodes}
	}
	for _, r := range reached {
		node, err := e.causal.GetNode(ctx, r.UUID)
		if err != nil {
			continue
		}
		score := r.Confidence
		nodes = append(nodes, merge.Node{UUID: r.UUID, Data: causalNodeData(node), Score: &score})
	}

	return merge.GraphView{Source: store.SourceCausal, Nodes: nodes}
}

func conceptData(c store.Concept) map[string]interface{} {
	return map[string]interface{}{
		"uuid":        c.UUID,
		"name":        c.Name,
		"description": c.Description,
	}
}

func entityData(ent store.Entity) map[string]interface{} {
	data := map[string]interface{}{
		"uuid":        ent.UUID,
		"name":        ent.Name,
		"entity_type": ent.EntityType,
	}
	for k, v := range ent.Properties {
		if _, exists := data[k]; !exists {
			data[k] = v
		}
	}
	return data
}

func eventData(ev store.TemporalEvent) map[string]interface{} {
	return map[string]interface{}{
		"uuid":        ev.UUID,
		"description": ev.Description,
		"occurred_at": ev.OccurredAt.Format(time.RFC3339),
	}
}

func causalNodeData(n store.CausalNode) map[string]interface{} {
	return map[string]interface{}{
		"uuid":        n.UUID,
		"description": n.Description,
		"node_type":   n.NodeType,
	}
}

func (e *Executor) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.tracer.Start(ctx, name)
}

func (e *Executor) observe(stage string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
