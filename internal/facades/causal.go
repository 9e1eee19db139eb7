package facades

import (
	"context"
	"strings"
	"time"

	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// Causal is the facade over the C_Node label and its C_CAUSES edges.
type Causal struct {
	store  store.Adapter
	logger *logging.Logger
}

// NewCausal constructs a Causal facade.
func NewCausal(adapter store.Adapter) *Causal {
	return &Causal{store: adapter, logger: logging.GetLogger("facades.causal")}
}

// AddNode persists a new CausalNode.
func (c *Causal) AddNode(ctx context.Context, description, nodeType string) (store.CausalNode, error) {
	if description == "" {
		return store.CausalNode{}, merrors.New(merrors.KindValidation, "causal.addNode", "description must not be empty")
	}

	now := time.Now()
	props := map[string]interface{}{
		"description": description,
		"nodeType":    nodeType,
		"createdAt":   now.UnixNano(),
	}

	id, err := c.store.CreateNode(ctx, store.LabelCausalNode, props)
	if err != nil {
		return store.CausalNode{}, merrors.Wrap(merrors.KindBackend, "causal.addNode", err)
	}

	return store.CausalNode{UUID: id, Description: description, NodeType: nodeType, CreatedAt: now}, nil
}

// AddLink creates a directed C_CAUSES edge from cause to effect.
func (c *Causal) AddLink(ctx context.Context, causeUUID, effectUUID string, confidence float64, evidence string) error {
	if causeUUID == effectUUID {
		return merrors.New(merrors.KindRelationship, "causal.addLink", "a causal node cannot cause itself")
	}
	if confidence < 0 || confidence > 1 {
		return merrors.New(merrors.KindValidation, "causal.addLink", "confidence must be in [0, 1]")
	}

	props := map[string]interface{}{
		"confidence": confidence,
		"evidence":   evidence,
		"createdAt":  time.Now().UnixNano(),
	}
	if err := c.store.CreateRelationship(ctx, causeUUID, effectUUID, store.RelCausalCauses, props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "causal.addLink", err)
	}
	return nil
}

// GetNode retrieves a single causal node by uuid.
func (c *Causal) GetNode(ctx context.Context, uuid string) (store.CausalNode, error) {
	rec, err := c.store.FindNodeByUUID(ctx, store.LabelCausalNode, uuid)
	if err != nil {
		return store.CausalNode{}, merrors.Wrap(merrors.KindBackend, "causal.getNode", err)
	}
	if rec == nil {
		return store.CausalNode{}, merrors.New(merrors.KindNotFound, "causal.getNode", "causal node "+uuid+" not found")
	}
	return causalNodeFromRecord(rec), nil
}

// FindOrCreate returns the first causal node whose description equals
// description case-insensitively, creating one of nodeType if none does.
func (c *Causal) FindOrCreate(ctx context.Context, description, nodeType string) (store.CausalNode, error) {
	candidates, err := c.store.FindCausalNodesByDescription(ctx, description)
	if err != nil {
		return store.CausalNode{}, merrors.Wrap(merrors.KindBackend, "causal.findOrCreate", err)
	}
	for _, cand := range candidates {
		if strings.EqualFold(cand.Description, description) {
			return cand, nil
		}
	}
	return c.AddNode(ctx, description, nodeType)
}

// LinkToEvent creates an X_REFERS_TO cross-link from a causal node to a
// temporal event.
func (c *Causal) LinkToEvent(ctx context.Context, causalNodeUUID, eventUUID string) error {
	props := map[string]interface{}{"createdAt": time.Now().UnixNano()}
	if err := c.store.CreateRelationship(ctx, causalNodeUUID, eventUUID, store.RelXRefersTo, props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "causal.linkToEvent", err)
	}
	return nil
}

// LinkToEntity creates an X_AFFECTS cross-link from a causal node to an
// entity.
func (c *Causal) LinkToEntity(ctx context.Context, causalNodeUUID, entityUUID string) error {
	props := map[string]interface{}{"createdAt": time.Now().UnixNano()}
	if err := c.store.CreateRelationship(ctx, causalNodeUUID, entityUUID, store.RelXAffects, props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "causal.linkToEntity", err)
	}
	return nil
}

// GetNodesForEntities returns the causal nodes that X_AFFECTS any of the
// given entity uuids.
func (c *Causal) GetNodesForEntities(ctx context.Context, entityUUIDs []string) ([]store.CausalNode, error) {
	seen := map[string]bool{}
	var out []store.CausalNode
	for _, entityUUID := range entityUUIDs {
		// X_AFFECTS is directed causalNode -> entity, so we scan every
		// causal node's outgoing links rather than querying by target.
		candidates, err := c.store.FindCausalNodesByDescription(ctx, "")
		if err != nil {
			return nil, merrors.Wrap(merrors.KindBackend, "causal.getNodesForEntities", err)
		}
		for _, node := range candidates {
			if seen[node.UUID] {
				continue
			}
			links, err := c.store.GetCrossLinksFrom(ctx, node.UUID, store.CrossLinkAffects)
			if err != nil {
				return nil, merrors.Wrap(merrors.KindBackend, "causal.getNodesForEntities", err)
			}
			for _, l := range links {
				if l.TargetUUID == entityUUID {
					seen[node.UUID] = true
					out = append(out, node)
					break
				}
			}
		}
	}
	return out, nil
}

// TraverseFromNodeIds walks from the given causal node uuids in the
// given direction ("upstream", "downstream", or "both") up to maxDepth
// hops, and returns every uuid reached (seed ids excluded), deduplicated.
func (c *Causal) TraverseFromNodeIds(ctx context.Context, nodeUUIDs []string, direction string, maxDepth int) ([]string, error) {
	if maxDepth < 0 {
		return nil, merrors.New(merrors.KindValidation, "causal.traverseFromNodeIds", "maxDepth must be >= 0")
	}

	visited := map[string]bool{}
	for _, id := range nodeUUIDs {
		visited[id] = true
	}
	frontier := append([]string{}, nodeUUIDs...)
	var reached []string

	dirs := []string{direction}
	if direction == "both" {
		dirs = []string{"upstream", "downstream"}
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, dir := range dirs {
				links, err := c.store.GetCausalLinks(ctx, id, dir)
				if err != nil {
					return nil, merrors.Wrap(merrors.KindCausalTraversal, "causal.traverseFromNodeIds", err)
				}
				for _, link := range links {
					other := link.CauseNodeUUID
					if dir == "downstream" {
						other = link.EffectNodeUUID
					}
					if !visited[other] {
						visited[other] = true
						reached = append(reached, other)
						next = append(next, other)
					}
				}
			}
		}
		frontier = next
	}

	return reached, nil
}

// ScoredCausalNode is a node reached by TraverseFromNodeIdsScored, carrying
// the confidence of the link by which it was first discovered.
type ScoredCausalNode struct {
	UUID       string
	Confidence float64
}

// TraverseFromNodeIdsScored is TraverseFromNodeIds, additionally scoring
// each reached node by the confidence of the C_CAUSES link that first
// discovered it.
func (c *Causal) TraverseFromNodeIdsScored(ctx context.Context, nodeUUIDs []string, direction string, maxDepth int) ([]ScoredCausalNode, error) {
	if maxDepth < 0 {
		return nil, merrors.New(merrors.KindValidation, "causal.traverseFromNodeIdsScored", "maxDepth must be >= 0")
	}

	visited := map[string]bool{}
	for _, id := range nodeUUIDs {
		visited[id] = true
	}
	frontier := append([]string{}, nodeUUIDs...)
	var reached []ScoredCausalNode

	dirs := []string{direction}
	if direction == "both" {
		dirs = []string{"upstream", "downstream"}
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, dir := range dirs {
				links, err := c.store.GetCausalLinks(ctx, id, dir)
				if err != nil {
					return nil, merrors.Wrap(merrors.KindCausalTraversal, "causal.traverseFromNodeIdsScored", err)
				}
				for _, link := range links {
					other := link.CauseNodeUUID
					if dir == "downstream" {
						other = link.EffectNodeUUID
					}
					if !visited[other] {
						visited[other] = true
						reached = append(reached, ScoredCausalNode{UUID: other, Confidence: link.Confidence})
						next = append(next, other)
					}
				}
			}
		}
		frontier = next
	}

	return reached, nil
}

// Traverse resolves mentions to causal-node candidates by description
// and delegates to TraverseFromNodeIds.
func (c *Causal) Traverse(ctx context.Context, mentions []string, direction string, maxDepth int) ([]string, error) {
	var seedIDs []string
	for _, mention := range mentions {
		candidates, err := c.store.FindCausalNodesByDescription(ctx, mention)
		if err != nil {
			return nil, merrors.Wrap(merrors.KindBackend, "causal.traverse", err)
		}
		for _, cand := range candidates {
			seedIDs = append(seedIDs, cand.UUID)
		}
	}
	return c.TraverseFromNodeIds(ctx, seedIDs, direction, maxDepth)
}

// UpstreamCauses returns the direct causes of nodeUUID.
func (c *Causal) UpstreamCauses(ctx context.Context, nodeUUID string) ([]store.CausalLink, error) {
	links, err := c.store.GetCausalLinks(ctx, nodeUUID, "upstream")
	if err != nil {
		return nil, merrors.Wrap(merrors.KindCausalTraversal, "causal.upstreamCauses", err)
	}
	return links, nil
}

// DownstreamEffects returns the direct effects of nodeUUID.
func (c *Causal) DownstreamEffects(ctx context.Context, nodeUUID string) ([]store.CausalLink, error) {
	links, err := c.store.GetCausalLinks(ctx, nodeUUID, "downstream")
	if err != nil {
		return nil, merrors.Wrap(merrors.KindCausalTraversal, "causal.downstreamEffects", err)
	}
	return links, nil
}

// CausalChain walks upstream causes breadth-first up to maxDepth hops,
// visiting each node once, and returns every uuid reached (nodeUUID
// excluded).
func (c *Causal) CausalChain(ctx context.Context, nodeUUID string, maxDepth int) ([]string, error) {
	if maxDepth < 0 {
		return nil, merrors.New(merrors.KindValidation, "causal.causalChain", "maxDepth must be >= 0")
	}

	visited := map[string]bool{nodeUUID: true}
	frontier := []string{nodeUUID}
	var chain []string

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			links, err := c.store.GetCausalLinks(ctx, id, "upstream")
			if err != nil {
				return nil, merrors.Wrap(merrors.KindCausalTraversal, "causal.causalChain", err)
			}
			for _, link := range links {
				if !visited[link.CauseNodeUUID] {
					visited[link.CauseNodeUUID] = true
					chain = append(chain, link.CauseNodeUUID)
					next = append(next, link.CauseNodeUUID)
				}
			}
		}
		frontier = next
	}

	return chain, nil
}

// ExplainWhy finds the causal node whose description best matches query,
// using a substring search as the first pass and a Jaccard token-overlap
// score to rank ties, then returns its upstream causal chain.
func (c *Causal) ExplainWhy(ctx context.Context, query string, maxDepth int) (store.CausalNode, []string, error) {
	candidates, err := c.store.FindCausalNodesByDescription(ctx, query)
	if err != nil {
		return store.CausalNode{}, nil, merrors.Wrap(merrors.KindBackend, "causal.explainWhy", err)
	}
	if len(candidates) == 0 {
		return store.CausalNode{}, nil, merrors.New(merrors.KindNotFound, "causal.explainWhy", "no causal node matches "+query)
	}

	best := candidates[0]
	bestScore := jaccard(query, best.Description)
	for _, cand := range candidates[1:] {
		if score := jaccard(query, cand.Description); score > bestScore {
			best = cand
			bestScore = score
		}
	}

	chain, err := c.CausalChain(ctx, best.UUID, maxDepth)
	if err != nil {
		return store.CausalNode{}, nil, err
	}
	return best, chain, nil
}

func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func causalNodeFromRecord(rec store.Record) store.CausalNode {
	n := store.CausalNode{}
	if v, ok := rec["uuid"].(string); ok {
		n.UUID = v
	}
	if v, ok := rec["description"].(string); ok {
		n.Description = v
	}
	if v, ok := rec["nodeType"].(string); ok {
		n.NodeType = v
	}
	if v, ok := asUnixNano(rec["createdAt"]); ok {
		n.CreatedAt = time.Unix(0, v)
	}
	return n
}
