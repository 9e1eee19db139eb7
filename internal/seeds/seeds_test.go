package seeds

import (
	"context"
	"testing"

	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/store"
	"github.com/moolen/magma/internal/store/storetest"
)

func setupLinkedConcepts(t *testing.T) (*facades.Semantic, *facades.Entity, *facades.CrossLinker, []facades.SemanticMatch) {
	t.Helper()
	fake := storetest.New()
	sem := facades.NewSemantic(fake, nil)
	ent := facades.NewEntity(fake)
	linker := facades.NewCrossLinker(fake)
	ctx := context.Background()

	concept1, err := fake.CreateNode(ctx, store.LabelConcept, map[string]interface{}{"name": "c1"})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	concept2, err := fake.CreateNode(ctx, store.LabelConcept, map[string]interface{}{"name": "c2"})
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}

	entity1, err := ent.AddEntity(ctx, "entity1", "service", nil)
	if err != nil {
		t.Fatalf("AddEntity() error = %v", err)
	}

	if err := linker.CreateLink(ctx, concept1, entity1.UUID, store.CrossLinkRepresents); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	matches := []facades.SemanticMatch{
		{Concept: store.Concept{UUID: concept1}, Score: 0.9},
		{Concept: store.Concept{UUID: concept2}, Score: 0.3},
	}
	return sem, ent, linker, matches
}

func TestExtractDedupsAndCountsWithoutLinks(t *testing.T) {
	_, _, linker, matches := setupLinkedConcepts(t)

	result, err := Extract(context.Background(), linker, matches)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if result.Stats.ConceptsSearched != 2 {
		t.Errorf("ConceptsSearched = %d, want 2", result.Stats.ConceptsSearched)
	}
	if result.Stats.ConceptsWithoutLinks != 1 {
		t.Errorf("ConceptsWithoutLinks = %d, want 1", result.Stats.ConceptsWithoutLinks)
	}
	if len(result.EntitySeeds) != 1 {
		t.Fatalf("EntitySeeds = %+v, want 1 entry", result.EntitySeeds)
	}
	if result.EntitySeeds[0].SemanticScore != 0.9 {
		t.Errorf("EntitySeeds[0].SemanticScore = %v, want 0.9", result.EntitySeeds[0].SemanticScore)
	}
}

func TestExtractBatchedMatchesSerialExtract(t *testing.T) {
	_, _, linker, matches := setupLinkedConcepts(t)

	serial, err := Extract(context.Background(), linker, matches)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	batched, err := ExtractBatched(context.Background(), linker, matches, 1)
	if err != nil {
		t.Fatalf("ExtractBatched() error = %v", err)
	}

	if batched.Stats.EntitiesFound != serial.Stats.EntitiesFound {
		t.Errorf("ExtractBatched EntitiesFound = %d, want %d", batched.Stats.EntitiesFound, serial.Stats.EntitiesFound)
	}
	if batched.Stats.ConceptsWithoutLinks != serial.Stats.ConceptsWithoutLinks {
		t.Errorf("ExtractBatched ConceptsWithoutLinks = %d, want %d", batched.Stats.ConceptsWithoutLinks, serial.Stats.ConceptsWithoutLinks)
	}
}

func TestFilterSeedsByScorePreservesOrder(t *testing.T) {
	seeds := []Seed{
		{EntityID: "a", SemanticScore: 0.9},
		{EntityID: "b", SemanticScore: 0.2},
		{EntityID: "c", SemanticScore: 0.6},
	}

	filtered, err := FilterSeedsByScore(seeds, 0.5)
	if err != nil {
		t.Fatalf("FilterSeedsByScore() error = %v", err)
	}
	if len(filtered) != 2 || filtered[0].EntityID != "a" || filtered[1].EntityID != "c" {
		t.Errorf("FilterSeedsByScore() = %+v, want [a, c] in order", filtered)
	}
}

func TestFilterSeedsByScoreRejectsOutOfRange(t *testing.T) {
	if _, err := FilterSeedsByScore(nil, 1.5); err == nil {
		t.Fatal("FilterSeedsByScore() with minScore > 1, want error")
	}
}

func TestGetEntityIDsPreservesOrder(t *testing.T) {
	seeds := []Seed{{EntityID: "x"}, {EntityID: "y"}}
	ids := GetEntityIDs(seeds)
	if len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Errorf("GetEntityIDs() = %v, want [x, y]", ids)
	}
}
