// Package classify defines the query-intent classifier contract consumed
// by the MAGMA executor and the MCP tool surface's write path into it.
package classify

import (
	"context"
	"encoding/json"

	"github.com/moolen/magma/internal/intent"
)

// Classifier turns a natural-language query (plus optional surrounding
// context lines) into a MAGMAIntent.
type Classifier interface {
	Classify(ctx context.Context, query string, context []string) (intent.MAGMAIntent, error)
}

// Schema is the fixed JSON schema every classifier implementation forces
// its backend to populate, shared so the Anthropic tool-call and Gemini
// response-schema implementations stay in lockstep.
var Schema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"type": map[string]interface{}{
			"type": "string",
			"enum": []string{"WHY", "WHEN", "WHO", "WHAT", "EXPLORE"},
		},
		"entities": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"temporal_hints": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"depth_hints": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entity":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5},
				"temporal": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5},
				"causal":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 5},
			},
			"required": []string{"entity", "temporal", "causal"},
		},
		"confidence": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
	"required": []string{"type", "confidence"},
}

// result is the JSON shape every backend decodes Schema's output into
// before converting it to an intent.MAGMAIntent.
type result struct {
	Type          string   `json:"type"`
	Entities      []string `json:"entities"`
	TemporalHints []string `json:"temporal_hints"`
	DepthHints    *struct {
		Entity   int `json:"entity"`
		Temporal int `json:"temporal"`
		Causal   int `json:"causal"`
	} `json:"depth_hints"`
	Confidence float64 `json:"confidence"`
}

// DecodeResult parses a backend's JSON output (matching Schema) into a
// MAGMAIntent. It does not call Validate; callers do that themselves so
// a malformed backend response surfaces as a validation error, not a
// decode error.
func DecodeResult(data []byte) (intent.MAGMAIntent, error) {
	var r result
	if err := json.Unmarshal(data, &r); err != nil {
		return intent.MAGMAIntent{}, err
	}
	return r.toIntent(), nil
}

func (r result) toIntent() intent.MAGMAIntent {
	depth := intent.DefaultDepthHints()
	if r.DepthHints != nil {
		depth = intent.DepthHints{Entity: r.DepthHints.Entity, Temporal: r.DepthHints.Temporal, Causal: r.DepthHints.Causal}
	}
	return intent.MAGMAIntent{
		Type:          intent.Type(r.Type),
		Entities:      r.Entities,
		TemporalHints: r.TemporalHints,
		DepthHints:    depth,
		Confidence:    r.Confidence,
	}
}

// Prompt builds the user-facing instruction both backends send alongside
// the query and its surrounding context lines.
func Prompt(query string, context []string) string {
	p := "Classify the intent of this query for a multi-graph memory retrieval system.\n\n" +
		"Query: " + query + "\n"
	if len(context) > 0 {
		p += "\nContext:\n"
		for _, c := range context {
			p += "- " + c + "\n"
		}
	}
	p += "\nChoose exactly one type: WHY (causal explanation), WHEN (temporal), " +
		"WHO or WHAT (entity/descriptive), or EXPLORE (open-ended). " +
		"Extract any named entities and temporal phrases mentioned. " +
		"Suggest depth hints in [1,5] for how far to expand the entity, temporal, and causal graphs."
	return p
}
