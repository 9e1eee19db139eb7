// Package seeds derives entity starting points for graph expansion from
// a batch of semantic concept hits.
package seeds

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// DefaultBatchSize is the number of concepts processed per errgroup batch
// in ExtractBatched when its batchSize is <= 0.
const DefaultBatchSize = 10

// Seed is one entity reachable from a concept hit via X_REPRESENTS.
type Seed struct {
	EntityID        string
	SourceConceptID string
	SemanticScore   float64
}

// Stats summarizes how many concepts contributed seeds.
type Stats struct {
	ConceptsSearched    int
	EntitiesFound       int
	ConceptsWithoutLinks int
}

// Result is the output of seed extraction.
type Result struct {
	EntitySeeds []Seed
	ConceptIDs  []string
	Stats       Stats
}

var logger = logging.GetLogger("seeds")

// Extract derives entity seeds from matches sequentially, one concept at
// a time, round-tripping through linker.GetLinksFrom for each.
func Extract(ctx context.Context, linker *facades.CrossLinker, matches []facades.SemanticMatch) (Result, error) {
	result := Result{ConceptIDs: make([]string, 0, len(matches))}
	seen := make(map[string]bool)

	for _, m := range matches {
		result.ConceptIDs = append(result.ConceptIDs, m.Concept.UUID)
		result.Stats.ConceptsSearched++

		links, err := linker.GetLinksFrom(ctx, m.Concept.UUID, store.CrossLinkRepresents)
		if err != nil {
			return Result{}, merrors.Wrap(merrors.KindBackend, "seeds.extract", err)
		}
		if len(links) == 0 {
			result.Stats.ConceptsWithoutLinks++
			continue
		}

		for _, link := range links {
			if seen[link.TargetUUID] {
				continue
			}
			seen[link.TargetUUID] = true
			result.Stats.EntitiesFound++
			result.EntitySeeds = append(result.EntitySeeds, Seed{
				EntityID:        link.TargetUUID,
				SourceConceptID: m.Concept.UUID,
				SemanticScore:   m.Score,
			})
		}
	}

	return result, nil
}

// ExtractBatched is the concurrent variant of Extract: concepts are
// processed in parallel groups of batchSize (DefaultBatchSize if <= 0),
// with the dedup merge performed serially after each batch completes so
// first-introducer attribution is preserved.
func ExtractBatched(ctx context.Context, linker *facades.CrossLinker, matches []facades.SemanticMatch, batchSize int) (Result, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := Result{ConceptIDs: make([]string, 0, len(matches))}
	seen := make(map[string]bool)
	for _, m := range matches {
		result.ConceptIDs = append(result.ConceptIDs, m.Concept.UUID)
	}

	type batchHit struct {
		conceptID      string
		semanticScore  float64
		links          []string
		hadNoLinks     bool
	}

	for start := 0; start < len(matches); start += batchSize {
		end := start + batchSize
		if end > len(matches) {
			end = len(matches)
		}
		batch := matches[start:end]

		hits := make([]batchHit, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range batch {
			i, m := i, m
			g.Go(func() error {
				links, err := linker.GetLinksFrom(gctx, m.Concept.UUID, store.CrossLinkRepresents)
				if err != nil {
					return err
				}
				targets := make([]string, len(links))
				for j, l := range links {
					targets[j] = l.TargetUUID
				}
				hits[i] = batchHit{conceptID: m.Concept.UUID, semanticScore: m.Score, links: targets, hadNoLinks: len(targets) == 0}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, merrors.Wrap(merrors.KindBackend, "seeds.extractBatched", err)
		}

		for _, h := range hits {
			result.Stats.ConceptsSearched++
			if h.hadNoLinks {
				result.Stats.ConceptsWithoutLinks++
				continue
			}
			for _, target := range h.links {
				if seen[target] {
					continue
				}
				seen[target] = true
				result.Stats.EntitiesFound++
				result.EntitySeeds = append(result.EntitySeeds, Seed{
					EntityID:        target,
					SourceConceptID: h.conceptID,
					SemanticScore:   h.semanticScore,
				})
			}
		}
	}

	return result, nil
}

// ExtractFromEnriched is the preferred path when matches were obtained
// via Semantic.SearchWithEntities: no cross-linker round-trips are
// needed since the X_REPRESENTS targets were already resolved.
func ExtractFromEnriched(matches []facades.EnrichedSemanticMatch, minScore float64) Result {
	result := Result{ConceptIDs: make([]string, 0, len(matches))}
	seen := make(map[string]bool)

	for _, m := range matches {
		result.ConceptIDs = append(result.ConceptIDs, m.Concept.UUID)
		result.Stats.ConceptsSearched++

		if len(m.LinkedEntityIDs) == 0 {
			result.Stats.ConceptsWithoutLinks++
			continue
		}
		if m.Score < minScore {
			continue
		}

		for _, entityID := range m.LinkedEntityIDs {
			if seen[entityID] {
				continue
			}
			seen[entityID] = true
			result.Stats.EntitiesFound++
			result.EntitySeeds = append(result.EntitySeeds, Seed{
				EntityID:        entityID,
				SourceConceptID: m.Concept.UUID,
				SemanticScore:   m.Score,
			})
		}
	}

	return result
}

// GetEntityIDs returns the entity ids carried by seeds, preserving order.
func GetEntityIDs(seeds []Seed) []string {
	ids := make([]string, len(seeds))
	for i, s := range seeds {
		ids[i] = s.EntityID
	}
	return ids
}

// FilterSeedsByScore returns the subset of seeds with SemanticScore >=
// minScore. minScore must be within [0, 1].
func FilterSeedsByScore(seeds []Seed, minScore float64) ([]Seed, error) {
	if minScore < 0 || minScore > 1 {
		return nil, merrors.New(merrors.KindValidation, "seeds.filterSeedsByScore", "minScore must be in [0, 1]")
	}

	out := make([]Seed, 0, len(seeds))
	for _, s := range seeds {
		if s.SemanticScore >= minScore {
			out = append(out, s)
		}
	}
	return out, nil
}
