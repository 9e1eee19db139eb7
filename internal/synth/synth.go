// Package synth defines the answer-synthesis contract that turns a
// linearized context block into a natural-language answer.
package synth

import (
	"context"
	"fmt"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/linearize"
)

// Answer is a synthesizer's output.
type Answer struct {
	Text string
}

// Synthesizer produces a natural-language answer from a linearized
// context block, the query's classified intent, and the original query.
type Synthesizer interface {
	Synthesize(ctx context.Context, linearized linearize.LinearizedContext, it intent.Type, query string) (Answer, error)
}

// Prompt builds the instruction every backend sends alongside the
// linearized context.
func Prompt(linearized linearize.LinearizedContext, it intent.Type, query string) string {
	return fmt.Sprintf(
		"Answer the question using only the context below. Be concise and cite which "+
			"facts support your answer.\n\nIntent: %s\n\nQuestion: %s\n\nContext:\n%s",
		it, query, linearized.Text,
	)
}
