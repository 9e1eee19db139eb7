package mcp

// rawSchemas holds each tool's JSON-schema source, passed verbatim to
// mcp.NewToolWithRawSchema; mcp-go does not enforce the schema itself.
// The handlers check only that required arguments are present and of the
// right type (validate.go), plus clear_graph's graph enum. The other
// ranges and enums declared here are not checked by the handlers; a value
// outside them either reaches the facade or pipeline unchanged or is
// rejected there as an ordinary tool error.
var rawSchemas = map[string]string{
	"get_statistics": `{"type":"object","properties":{}}`,

	"clear_graph": `{
		"type": "object",
		"properties": {
			"graph": {"type": "string", "enum": ["semantic", "entity", "temporal", "causal", "all"]}
		},
		"required": ["graph"]
	}`,

	"remember": `{
		"type": "object",
		"properties": {
			"content": {"type": "string"},
			"context": {"type": "string"}
		},
		"required": ["content"]
	}`,

	"add_entity": `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"entity_type": {"type": "string"},
			"properties": {"type": "object"}
		},
		"required": ["name", "entity_type"]
	}`,

	"link_entities": `{
		"type": "object",
		"properties": {
			"source": {"type": "string"},
			"target": {"type": "string"},
			"relationship": {"type": "string"}
		},
		"required": ["source", "target", "relationship"]
	}`,

	"add_event": `{
		"type": "object",
		"properties": {
			"description": {"type": "string"},
			"occurred_at": {"type": "string"},
			"entity_ids": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["description", "occurred_at"]
	}`,

	"add_fact": `{
		"type": "object",
		"properties": {
			"subject": {"type": "string"},
			"predicate": {"type": "string"},
			"object": {"type": "string"},
			"valid_from": {"type": "string"},
			"valid_to": {"type": "string"},
			"subject_entity": {"type": "string"}
		},
		"required": ["subject", "predicate", "object", "valid_from"]
	}`,

	"add_causal_link": `{
		"type": "object",
		"properties": {
			"cause": {"type": "string"},
			"effect": {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"evidence": {"type": "string"},
			"entities": {"type": "array", "items": {"type": "string"}},
			"events": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["cause", "effect"]
	}`,

	"add_concept": `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"description": {"type": "string"}
		},
		"required": ["name"]
	}`,

	"semantic_search": `{
		"type": "object",
		"properties": {
			"query": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100},
			"min_score": {"type": "number", "minimum": 0, "maximum": 1}
		},
		"required": ["query"]
	}`,

	"entity_lookup": `{
		"type": "object",
		"properties": {
			"entity_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"depth": {"type": "integer", "minimum": 1, "maximum": 5},
			"include_properties": {"type": "boolean"}
		},
		"required": ["entity_ids"]
	}`,

	"temporal_expand": `{
		"type": "object",
		"properties": {
			"entity_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"from": {"type": "string"},
			"to": {"type": "string"}
		},
		"required": ["entity_ids"]
	}`,

	"causal_expand": `{
		"type": "object",
		"properties": {
			"entity_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"direction": {"type": "string", "enum": ["upstream", "downstream", "both"]},
			"depth": {"type": "integer", "minimum": 1, "maximum": 5}
		},
		"required": ["entity_ids"]
	}`,

	"subgraph_merge": `{
		"type": "object",
		"properties": {
			"views": {"type": "array", "minItems": 1},
			"multi_view_boost": {"type": "number", "minimum": 1},
			"min_score": {"type": "number"}
		},
		"required": ["views"]
	}`,

	"linearize_context": `{
		"type": "object",
		"properties": {
			"subgraph": {"type": "object"},
			"intent": {"type": "string", "enum": ["WHY", "WHEN", "WHO", "WHAT", "EXPLORE"]},
			"max_tokens": {"type": "integer", "minimum": 100, "maximum": 100000}
		},
		"required": ["subgraph", "intent"]
	}`,
}
