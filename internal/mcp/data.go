package mcp

import (
	"time"

	"github.com/moolen/magma/internal/store"
)

// These mirror the node-data shaping in internal/magma/executor.go so a
// view produced by a retrieval tool round-trips cleanly through
// subgraph_merge regardless of whether it came from the executor or from
// a client composing individual tools by hand.

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

func factData(f store.TemporalFact) map[string]interface{} {
	data := map[string]interface{}{
		"uuid":       f.UUID,
		"subject":    f.Subject,
		"predicate":  f.Predicate,
		"object":     f.Object,
		"valid_from": f.ValidFrom.Format(time.RFC3339),
	}
	if f.ValidTo != nil {
		data["valid_to"] = f.ValidTo.Format(time.RFC3339)
	}
	return data
}

func causalNodeData(n store.CausalNode) map[string]interface{} {
	return map[string]interface{}{
		"uuid":        n.UUID,
		"description": n.Description,
		"node_type":   n.NodeType,
	}
}
