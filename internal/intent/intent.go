// Package intent defines the query-intent classification consumed by the
// MAGMA executor and context linearizer.
package intent

import "github.com/moolen/magma/internal/merrors"

// Type names the five intents a classifier may produce. It is advisory
// for the executor (which is driven by DepthHints) and authoritative for
// the linearizer's strategy selection.
type Type string

const (
	Why     Type = "WHY"
	When    Type = "WHEN"
	Who     Type = "WHO"
	What    Type = "WHAT"
	Explore Type = "EXPLORE"
)

func (t Type) valid() bool {
	switch t {
	case Why, When, Who, What, Explore:
		return true
	default:
		return false
	}
}

// DepthHints caps how far each graph expansion walks, each in [1,5].
type DepthHints struct {
	Entity   int
	Temporal int
	Causal   int
}

// MAGMAIntent is the classifier's output: a query's type, the entities
// and temporal phrases it mentions, how deep each graph should expand,
// and the classifier's confidence.
type MAGMAIntent struct {
	Type          Type
	Entities      []string
	TemporalHints []string
	DepthHints    DepthHints
	Confidence    float64
}

// Validate checks every field against its documented schema.
func (i MAGMAIntent) Validate() error {
	if !i.Type.valid() {
		return merrors.New(merrors.KindValidation, "intent.validate", "type must be one of WHY, WHEN, WHO, WHAT, EXPLORE")
	}
	if i.Confidence < 0 || i.Confidence > 1 {
		return merrors.New(merrors.KindValidation, "intent.validate", "confidence must be in [0,1]")
	}
	for name, v := range map[string]int{"entity": i.DepthHints.Entity, "temporal": i.DepthHints.Temporal, "causal": i.DepthHints.Causal} {
		if v < 1 || v > 5 {
			return merrors.New(merrors.KindValidation, "intent.validate", "depthHints."+name+" must be in [1,5]")
		}
	}
	return nil
}

// DefaultDepthHints returns the depth hints used when a classifier omits
// them: shallow everywhere, matching the executor's conservative default.
func DefaultDepthHints() DepthHints {
	return DepthHints{Entity: 1, Temporal: 1, Causal: 1}
}
