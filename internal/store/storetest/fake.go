// Package storetest provides an in-memory store.Adapter fake for unit
// tests of facades, the seed extractor, and the executor —
// none of which should need a running FalkorDB instance to exercise
// their own logic.
package storetest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moolen/magma/internal/store"
)

type node struct {
	label store.NodeLabel
	props map[string]interface{}
}

type edge struct {
	from, to string
	relType  store.RelationType
	props    map[string]interface{}
}

// Fake is an in-memory store.Adapter. It is safe for concurrent use.
type Fake struct {
	mu    sync.Mutex
	nodes map[string]node
	edges []edge
}

// New returns an empty fake adapter.
func New() *Fake {
	return &Fake{nodes: make(map[string]node)}
}

func (f *Fake) Connect(ctx context.Context) error { return nil }
func (f *Fake) Close() error                      { return nil }
func (f *Fake) HealthCheck(ctx context.Context) bool { return true }
func (f *Fake) InitializeSchema(ctx context.Context) error { return nil }

func (f *Fake) Query(ctx context.Context, q store.Query) (*store.QueryResult, error) {
	return nil, fmt.Errorf("storetest: fake does not support raw Query; use a typed Adapter method")
}

func (f *Fake) CreateNode(ctx context.Context, label store.NodeLabel, props map[string]interface{}) (string, error) {
	if !store.ValidIdentifier(string(label)) {
		return "", fmt.Errorf("storetest: invalid label %q", label)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	cp := make(map[string]interface{}, len(props)+1)
	for k, v := range props {
		cp[k] = v
	}
	cp["uuid"] = id
	f.nodes[id] = node{label: label, props: cp}
	return id, nil
}

func (f *Fake) CreateRelationship(ctx context.Context, fromUUID, toUUID string, relType store.RelationType, props map[string]interface{}) error {
	if !store.ValidIdentifier(string(relType)) {
		return fmt.Errorf("storetest: invalid relation type %q", relType)
	}
	if fromUUID == toUUID {
		return fmt.Errorf("storetest: self-links are prohibited")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.nodes[fromUUID]; !ok {
		return fmt.Errorf("storetest: source node %s not found", fromUUID)
	}
	if _, ok := f.nodes[toUUID]; !ok {
		return fmt.Errorf("storetest: target node %s not found", toUUID)
	}

	cp := make(map[string]interface{}, len(props))
	for k, v := range props {
		cp[k] = v
	}
	f.edges = append(f.edges, edge{from: fromUUID, to: toUUID, relType: relType, props: cp})
	return nil
}

func (f *Fake) UpdateNodeProperties(ctx context.Context, label store.NodeLabel, id string, props map[string]interface{}) error {
	if !store.ValidIdentifier(string(label)) {
		return fmt.Errorf("storetest: invalid label %q", label)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[id]
	if !ok || n.label != label {
		return fmt.Errorf("storetest: node %s not found", id)
	}
	for k, v := range props {
		n.props[k] = v
	}
	f.nodes[id] = n
	return nil
}

func (f *Fake) DeleteNode(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.nodes[id]; !ok {
		return false, nil
	}
	delete(f.nodes, id)

	kept := f.edges[:0]
	for _, e := range f.edges {
		if e.from != id && e.to != id {
			kept = append(kept, e)
		}
	}
	f.edges = kept
	return true, nil
}

func (f *Fake) FindNodeByUUID(ctx context.Context, label store.NodeLabel, id string) (store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[id]
	if !ok || n.label != label {
		return nil, nil
	}
	return cloneProps(n.props), nil
}

func (f *Fake) FindNodesByLabel(ctx context.Context, label store.NodeLabel, limit int) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.Record
	for _, n := range f.nodes {
		if n.label != label {
			continue
		}
		out = append(out, cloneProps(n.props))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) VectorSearch(ctx context.Context, indexName string, vector []float32, topK int) ([]store.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	type scored struct {
		id    string
		score float64
		props map[string]interface{}
	}
	var candidates []scored
	for id, n := range f.nodes {
		if n.label != store.LabelConcept {
			continue
		}
		emb, ok := n.props["embedding"].([]float32)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosineSimilarity(vector, emb), props: n.props})
	}

	// simple insertion sort by score desc; candidate counts in tests are small
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := make([]store.VectorMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, store.VectorMatch{NodeUUID: c.id, Score: c.score, Record: cloneProps(c.props)})
	}
	return matches, nil
}

func (f *Fake) ClearGraph(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nodes = make(map[string]node)
	f.edges = nil
	return nil
}

func (f *Fake) GetStatistics(ctx context.Context) (*store.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &store.Statistics{}
	for _, n := range f.nodes {
		switch n.label {
		case store.LabelConcept:
			stats.SemanticNodes++
		case store.LabelEntity:
			stats.EntityNodes++
		case store.LabelTemporalEvent, store.LabelTemporalFact:
			stats.TemporalNodes++
		case store.LabelCausalNode:
			stats.CausalNodes++
		}
	}
	stats.TotalRelationships = len(f.edges)
	return stats, nil
}

func (f *Fake) GetEntityRelationships(ctx context.Context, entityUUID string) ([]store.EntityRelationship, []store.EntityRelationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var outgoing, incoming []store.EntityRelationship
	for _, e := range f.edges {
		if e.relType != store.RelEntityRelates {
			continue
		}
		relType, _ := e.props["relationship_type"].(string)
		if e.from == entityUUID {
			outgoing = append(outgoing, store.EntityRelationship{FromUUID: e.from, ToUUID: e.to, RelationshipType: relType})
		}
		if e.to == entityUUID {
			incoming = append(incoming, store.EntityRelationship{FromUUID: e.from, ToUUID: e.to, RelationshipType: relType})
		}
	}
	return outgoing, incoming, nil
}

func (f *Fake) GetCrossLinksFrom(ctx context.Context, sourceUUID string, linkType store.CrossLinkType) ([]store.CrossLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var links []store.CrossLink
	for _, e := range f.edges {
		if string(e.relType) != string(linkType) || e.from != sourceUUID {
			continue
		}
		links = append(links, store.CrossLink{SourceUUID: e.from, TargetUUID: e.to, LinkType: linkType})
	}
	return links, nil
}

func (f *Fake) GetCrossLinksTo(ctx context.Context, targetUUID string, linkType store.CrossLinkType) ([]store.CrossLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var links []store.CrossLink
	for _, e := range f.edges {
		if string(e.relType) != string(linkType) || e.to != targetUUID {
			continue
		}
		links = append(links, store.CrossLink{SourceUUID: e.from, TargetUUID: e.to, LinkType: linkType})
	}
	return links, nil
}

func (f *Fake) RemoveCrossLink(ctx context.Context, sourceUUID, targetUUID string, linkType store.CrossLinkType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.edges[:0]
	removed := false
	for _, e := range f.edges {
		if !removed && string(e.relType) == string(linkType) && e.from == sourceUUID && e.to == targetUUID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return removed, nil
}

func (f *Fake) QueryEventsInRange(ctx context.Context, from, to time.Time, entityUUID string) ([]store.TemporalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	linked := map[string]bool{}
	if entityUUID != "" {
		for _, e := range f.edges {
			if e.relType == store.RelXInvolves && e.to == entityUUID {
				linked[e.from] = true
			}
		}
	}

	var events []store.TemporalEvent
	for id, n := range f.nodes {
		if n.label != store.LabelTemporalEvent {
			continue
		}
		if entityUUID != "" && !linked[id] {
			continue
		}
		ev := eventFromProps(n.props)
		if (ev.OccurredAt.Equal(from) || ev.OccurredAt.After(from)) && (ev.OccurredAt.Equal(to) || ev.OccurredAt.Before(to)) {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (f *Fake) QueryFactsInRange(ctx context.Context, from, to time.Time) ([]store.TemporalFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var facts []store.TemporalFact
	for _, n := range f.nodes {
		if n.label != store.LabelTemporalFact {
			continue
		}
		fact := factFromProps(n.props)
		if fact.ValidFrom.After(to) {
			continue
		}
		if fact.ValidTo != nil && fact.ValidTo.Before(from) {
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (f *Fake) GetFactsAt(ctx context.Context, instant time.Time) ([]store.TemporalFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var facts []store.TemporalFact
	for _, n := range f.nodes {
		if n.label != store.LabelTemporalFact {
			continue
		}
		fact := factFromProps(n.props)
		if fact.ValidFrom.After(instant) {
			continue
		}
		if fact.ValidTo != nil && fact.ValidTo.Before(instant) {
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (f *Fake) GetCausalLinks(ctx context.Context, nodeUUID string, direction string) ([]store.CausalLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var links []store.CausalLink
	for _, e := range f.edges {
		if e.relType != store.RelCausalCauses {
			continue
		}
		confidence, _ := e.props["confidence"].(float64)
		evidence, _ := e.props["evidence"].(string)

		switch direction {
		case "upstream":
			if e.to == nodeUUID {
				links = append(links, store.CausalLink{CauseNodeUUID: e.from, EffectNodeUUID: e.to, Confidence: confidence, Evidence: evidence})
			}
		case "downstream":
			if e.from == nodeUUID {
				links = append(links, store.CausalLink{CauseNodeUUID: e.from, EffectNodeUUID: e.to, Confidence: confidence, Evidence: evidence})
			}
		default:
			return nil, fmt.Errorf("storetest: invalid causal direction %q", direction)
		}
	}
	return links, nil
}

func (f *Fake) FindCausalNodesByDescription(ctx context.Context, q string) ([]store.CausalNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lowerQ := strings.ToLower(q)
	var nodes []store.CausalNode
	for _, n := range f.nodes {
		if n.label != store.LabelCausalNode {
			continue
		}
		desc, _ := n.props["description"].(string)
		if strings.Contains(strings.ToLower(desc), lowerQ) {
			nodeType, _ := n.props["nodeType"].(string)
			uuidVal, _ := n.props["uuid"].(string)
			nodes = append(nodes, store.CausalNode{UUID: uuidVal, Description: desc, NodeType: nodeType})
		}
	}
	return nodes, nil
}

func cloneProps(props map[string]interface{}) store.Record {
	cp := make(store.Record, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp
}

// Wire fields (occurredAt, duration, validFrom, validTo) are stored as
// Unix nanoseconds, matching the FalkorDB adapter's on-wire convention.

func eventFromProps(props map[string]interface{}) store.TemporalEvent {
	e := store.TemporalEvent{}
	if v, ok := props["uuid"].(string); ok {
		e.UUID = v
	}
	if v, ok := props["description"].(string); ok {
		e.Description = v
	}
	if v, ok := asUnixNano(props["occurredAt"]); ok {
		e.OccurredAt = time.Unix(0, v)
	}
	if v, ok := asUnixNano(props["duration"]); ok {
		e.Duration = time.Duration(v)
	}
	return e
}

func factFromProps(props map[string]interface{}) store.TemporalFact {
	fct := store.TemporalFact{}
	if v, ok := props["uuid"].(string); ok {
		fct.UUID = v
	}
	if v, ok := props["subject"].(string); ok {
		fct.Subject = v
	}
	if v, ok := props["predicate"].(string); ok {
		fct.Predicate = v
	}
	if v, ok := props["object"].(string); ok {
		fct.Object = v
	}
	if v, ok := asUnixNano(props["validFrom"]); ok {
		fct.ValidFrom = time.Unix(0, v)
	}
	if v, ok := asUnixNano(props["validTo"]); ok {
		t := time.Unix(0, v)
		fct.ValidTo = &t
	}
	return fct
}

func asUnixNano(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
