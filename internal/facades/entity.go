package facades

import (
	"context"
	"strings"
	"time"

	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// Entity is the facade over the E_Entity label and its E_RELATES edges.
type Entity struct {
	store  store.Adapter
	logger *logging.Logger
}

// NewEntity constructs an Entity facade.
func NewEntity(adapter store.Adapter) *Entity {
	return &Entity{store: adapter, logger: logging.GetLogger("facades.entity")}
}

// AddEntity persists a new Entity node.
func (e *Entity) AddEntity(ctx context.Context, name, entityType string, properties map[string]string) (store.Entity, error) {
	if name == "" {
		return store.Entity{}, merrors.New(merrors.KindValidation, "entity.addEntity", "name must not be empty")
	}
	if entityType == "" {
		return store.Entity{}, merrors.New(merrors.KindValidation, "entity.addEntity", "entityType must not be empty")
	}

	now := time.Now()
	props := map[string]interface{}{
		"name":       name,
		"entityType": entityType,
		"createdAt":  now.UnixNano(),
	}
	for k, v := range properties {
		props[k] = v
	}

	id, err := e.store.CreateNode(ctx, store.LabelEntity, props)
	if err != nil {
		return store.Entity{}, merrors.Wrap(merrors.KindBackend, "entity.addEntity", err)
	}

	return store.Entity{UUID: id, Name: name, EntityType: entityType, Properties: properties, CreatedAt: now}, nil
}

// GetEntity retrieves a single entity by uuid.
func (e *Entity) GetEntity(ctx context.Context, uuid string) (store.Entity, error) {
	rec, err := e.store.FindNodeByUUID(ctx, store.LabelEntity, uuid)
	if err != nil {
		return store.Entity{}, merrors.Wrap(merrors.KindBackend, "entity.getEntity", err)
	}
	if rec == nil {
		return store.Entity{}, merrors.New(merrors.KindNotFound, "entity.getEntity", "entity "+uuid+" not found")
	}
	return entityFromRecord(rec), nil
}

// FindEntitiesByName performs a case-insensitive substring search over
// entity names. There is no name index, so this scans every entity node.
func (e *Entity) FindEntitiesByName(ctx context.Context, query string) ([]store.Entity, error) {
	recs, err := e.store.FindNodesByLabel(ctx, store.LabelEntity, 0)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "entity.findEntitiesByName", err)
	}

	needle := strings.ToLower(query)
	var out []store.Entity
	for _, rec := range recs {
		ent := entityFromRecord(rec)
		if strings.Contains(strings.ToLower(ent.Name), needle) {
			out = append(out, ent)
		}
	}
	return out, nil
}

// UpdateEntity merges newProperties into an existing entity's property
// set.
func (e *Entity) UpdateEntity(ctx context.Context, uuid string, newProperties map[string]string) error {
	if len(newProperties) == 0 {
		return nil
	}
	props := make(map[string]interface{}, len(newProperties))
	for k, v := range newProperties {
		props[k] = v
	}
	if err := e.store.UpdateNodeProperties(ctx, store.LabelEntity, uuid, props); err != nil {
		return merrors.Wrap(merrors.KindBackend, "entity.updateEntity", err)
	}
	return nil
}

// DeleteEntity removes an entity and detaches its edges.
func (e *Entity) DeleteEntity(ctx context.Context, uuid string) (bool, error) {
	ok, err := e.store.DeleteNode(ctx, uuid)
	if err != nil {
		return false, merrors.Wrap(merrors.KindBackend, "entity.deleteEntity", err)
	}
	return ok, nil
}

// GetRelationshipsBatch calls GetRelationships for each uuid, keyed by
// uuid in the returned map.
func (e *Entity) GetRelationshipsBatch(ctx context.Context, uuids []string) (map[string]struct {
	Outgoing []store.EntityRelationship
	Incoming []store.EntityRelationship
}, error) {
	out := make(map[string]struct {
		Outgoing []store.EntityRelationship
		Incoming []store.EntityRelationship
	}, len(uuids))
	for _, id := range uuids {
		outgoing, incoming, err := e.GetRelationships(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = struct {
			Outgoing []store.EntityRelationship
			Incoming []store.EntityRelationship
		}{Outgoing: outgoing, Incoming: incoming}
	}
	return out, nil
}

// Mention is a single entity-resolution candidate.
type Mention struct {
	Mention string
	Type    string
}

// Resolve attempts, for each mention, an exact name match first falling
// back to a case-insensitive substring match; mentions with no match are
// simply absent from the result.
func (e *Entity) Resolve(ctx context.Context, mentions []Mention) ([]store.Entity, error) {
	recs, err := e.store.FindNodesByLabel(ctx, store.LabelEntity, 0)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "entity.resolve", err)
	}

	all := make([]store.Entity, 0, len(recs))
	for _, rec := range recs {
		all = append(all, entityFromRecord(rec))
	}

	var out []store.Entity
	for _, m := range mentions {
		if m.Type != "" {
			if ent, ok := findExact(all, m.Mention, m.Type); ok {
				out = append(out, ent)
				continue
			}
			if ent, ok := findSubstring(all, m.Mention, m.Type); ok {
				out = append(out, ent)
			}
			continue
		}
		if ent, ok := findExact(all, m.Mention, ""); ok {
			out = append(out, ent)
			continue
		}
		if ent, ok := findSubstring(all, m.Mention, ""); ok {
			out = append(out, ent)
		}
	}
	return out, nil
}

func findExact(entities []store.Entity, name, entityType string) (store.Entity, bool) {
	for _, e := range entities {
		if e.Name == name && (entityType == "" || e.EntityType == entityType) {
			return e, true
		}
	}
	return store.Entity{}, false
}

func findSubstring(entities []store.Entity, name, entityType string) (store.Entity, bool) {
	needle := strings.ToLower(name)
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Name), needle) && (entityType == "" || e.EntityType == entityType) {
			return e, true
		}
	}
	return store.Entity{}, false
}

// Search performs a case-insensitive substring search over entity names,
// optionally restricted to entityType.
func (e *Entity) Search(ctx context.Context, query, entityType string) ([]store.Entity, error) {
	matches, err := e.FindEntitiesByName(ctx, query)
	if err != nil {
		return nil, err
	}
	if entityType == "" {
		return matches, nil
	}

	var out []store.Entity
	for _, ent := range matches {
		if ent.EntityType == entityType {
			out = append(out, ent)
		}
	}
	return out, nil
}

// GetByType returns up to limit entities carrying entityType (limit <= 0
// means unbounded).
func (e *Entity) GetByType(ctx context.Context, entityType string, limit int) ([]store.Entity, error) {
	recs, err := e.store.FindNodesByLabel(ctx, store.LabelEntity, 0)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "entity.getByType", err)
	}

	var out []store.Entity
	for _, rec := range recs {
		ent := entityFromRecord(rec)
		if ent.EntityType != entityType {
			continue
		}
		out = append(out, ent)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// LinkEntities creates an E_RELATES edge between two entities.
func (e *Entity) LinkEntities(ctx context.Context, fromUUID, toUUID, relationshipType string) error {
	if relationshipType == "" {
		return merrors.New(merrors.KindValidation, "entity.linkEntities", "relationshipType must not be empty")
	}
	if fromUUID == toUUID {
		return merrors.New(merrors.KindRelationship, "entity.linkEntities", "cannot link an entity to itself")
	}

	props := map[string]interface{}{"relationship_type": relationshipType}
	if err := e.store.CreateRelationship(ctx, fromUUID, toUUID, store.RelEntityRelates, props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "entity.linkEntities", err)
	}
	return nil
}

// GetRelationships returns the outgoing and incoming E_RELATES edges
// touching the given entity.
func (e *Entity) GetRelationships(ctx context.Context, uuid string) (outgoing, incoming []store.EntityRelationship, err error) {
	outgoing, incoming, err = e.store.GetEntityRelationships(ctx, uuid)
	if err != nil {
		return nil, nil, merrors.Wrap(merrors.KindBackend, "entity.getRelationships", err)
	}
	return outgoing, incoming, nil
}

// Neighbors performs a bounded breadth-first traversal of the entity graph
// starting at uuid, visiting each node at most once, and returns every
// uuid reached within maxDepth hops (uuid itself excluded).
func (e *Entity) Neighbors(ctx context.Context, uuid string, maxDepth int) ([]string, error) {
	if maxDepth < 0 {
		return nil, merrors.New(merrors.KindValidation, "entity.neighbors", "maxDepth must be >= 0")
	}

	visited := map[string]bool{uuid: true}
	frontier := []string{uuid}
	var result []string

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			outgoing, incoming, err := e.store.GetEntityRelationships(ctx, id)
			if err != nil {
				return nil, merrors.Wrap(merrors.KindBackend, "entity.neighbors", err)
			}
			for _, rel := range outgoing {
				if !visited[rel.ToUUID] {
					visited[rel.ToUUID] = true
					result = append(result, rel.ToUUID)
					next = append(next, rel.ToUUID)
				}
			}
			for _, rel := range incoming {
				if !visited[rel.FromUUID] {
					visited[rel.FromUUID] = true
					result = append(result, rel.FromUUID)
					next = append(next, rel.FromUUID)
				}
			}
		}
		frontier = next
	}

	return result, nil
}

func entityFromRecord(rec store.Record) store.Entity {
	ent := store.Entity{Properties: map[string]string{}}
	if uuidVal, ok := rec["uuid"].(string); ok {
		ent.UUID = uuidVal
	}
	for k, v := range rec {
		switch k {
		case "uuid", "entityType", "createdAt":
			continue
		case "name":
			if s, ok := v.(string); ok {
				ent.Name = s
			}
		default:
			if s, ok := v.(string); ok {
				ent.Properties[k] = s
			}
		}
	}
	if et, ok := rec["entityType"].(string); ok {
		ent.EntityType = et
	}
	if v, ok := asUnixNano(rec["createdAt"]); ok {
		ent.CreatedAt = time.Unix(0, v)
	}
	return ent
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
