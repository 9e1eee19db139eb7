// Package facades exposes a small, label-scoped operation set over each
// of the four co-resident graphs plus the cross-link layer. Facades never
// mutate state outside their own label scope, and never touch FalkorDB
// directly — every facade is built against store.Adapter so a fake can
// stand in for tests.
package facades

import (
	"context"
	"fmt"
	"time"

	"github.com/moolen/magma/internal/embeddings"
	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// SemanticMatch is one concept hit from a semantic search.
type SemanticMatch struct {
	Concept store.Concept
	Score   float64
}

// EnrichedSemanticMatch additionally carries the entities the concept
// represents, found by following its X_REPRESENTS cross-links.
type EnrichedSemanticMatch struct {
	SemanticMatch
	LinkedEntityIDs   []string
	LinkedEntityNames []string
}

// Semantic is the facade over the S_Concept label.
type Semantic struct {
	store      store.Adapter
	embeddings embeddings.Provider
	logger     *logging.Logger
}

// NewSemantic constructs a Semantic facade.
func NewSemantic(adapter store.Adapter, provider embeddings.Provider) *Semantic {
	return &Semantic{store: adapter, embeddings: provider, logger: logging.GetLogger("facades.semantic")}
}

// AddConcept generates an embedding for name+description and persists a
// new Concept node.
func (s *Semantic) AddConcept(ctx context.Context, name, description string) (store.Concept, error) {
	if name == "" {
		return store.Concept{}, merrors.New(merrors.KindValidation, "semantic.addConcept", "name must not be empty")
	}

	text := name
	if description != "" {
		text = name + ": " + description
	}

	vector, err := s.embeddings.Embed(ctx, text)
	if err != nil {
		return store.Concept{}, merrors.Wrap(merrors.KindEmbeddingServer, "semantic.addConcept", err)
	}
	if len(vector) != s.embeddings.Dimensions() {
		return store.Concept{}, merrors.New(merrors.KindEmbeddingModel, "semantic.addConcept",
			fmt.Sprintf("embedding dimension %d does not match provider dimension %d", len(vector), s.embeddings.Dimensions()))
	}

	now := time.Now()
	props := map[string]interface{}{
		"name":        name,
		"description": description,
		"embedding":   vector,
		"createdAt":   now.UnixNano(),
	}

	id, err := s.store.CreateNode(ctx, store.LabelConcept, props)
	if err != nil {
		return store.Concept{}, merrors.Wrap(merrors.KindBackend, "semantic.addConcept", err)
	}

	return store.Concept{UUID: id, Name: name, Description: description, Embedding: vector, CreatedAt: now}, nil
}

// Search returns concept matches ordered by score descending.
func (s *Semantic) Search(ctx context.Context, query string, topK int) ([]SemanticMatch, error) {
	vector, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindEmbeddingServer, "semantic.search", err)
	}

	indexName := string(store.LabelConcept) + ".embedding"
	hits, err := s.store.VectorSearch(ctx, indexName, vector, topK)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "semantic.search", err)
	}

	matches := make([]SemanticMatch, 0, len(hits))
	for _, h := range hits {
		concept := conceptFromRecord(h.Record)
		concept.UUID = h.NodeUUID
		matches = append(matches, SemanticMatch{Concept: concept, Score: h.Score})
	}
	return matches, nil
}

// SearchWithEntities performs the same vector search as Search, then for
// each hit fetches its X_REPRESENTS cross-links and the name of every
// linked entity: one cross-link query per hit and one node lookup per
// link. The search and the link resolution are not a single store query.
func (s *Semantic) SearchWithEntities(ctx context.Context, query string, topK int) ([]EnrichedSemanticMatch, error) {
	matches, err := s.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedSemanticMatch, 0, len(matches))
	for _, m := range matches {
		links, err := s.store.GetCrossLinksFrom(ctx, m.Concept.UUID, store.CrossLinkRepresents)
		if err != nil {
			return nil, merrors.Wrap(merrors.KindBackend, "semantic.searchWithEntities", err)
		}

		var ids, names []string
		for _, link := range links {
			ids = append(ids, link.TargetUUID)
			rec, err := s.store.FindNodeByUUID(ctx, store.LabelEntity, link.TargetUUID)
			if err == nil && rec != nil {
				if name, ok := rec["name"].(string); ok {
					names = append(names, name)
				}
			}
		}

		enriched = append(enriched, EnrichedSemanticMatch{
			SemanticMatch:     m,
			LinkedEntityIDs:   ids,
			LinkedEntityNames: names,
		})
	}
	return enriched, nil
}

func conceptFromRecord(rec store.Record) store.Concept {
	c := store.Concept{}
	if uuidVal, ok := rec["uuid"].(string); ok {
		c.UUID = uuidVal
	}
	if name, ok := rec["name"].(string); ok {
		c.Name = name
	}
	if desc, ok := rec["description"].(string); ok {
		c.Description = desc
	}
	if v, ok := rec["createdAt"]; ok {
		switch n := v.(type) {
		case int64:
			c.CreatedAt = time.Unix(0, n)
		case float64:
			c.CreatedAt = time.Unix(0, int64(n))
		}
	}
	return c
}
