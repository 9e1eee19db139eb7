package synth

import (
	"strings"
	"testing"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/linearize"
)

func TestPromptIncludesQueryIntentAndContext(t *testing.T) {
	ctx := linearize.LinearizedContext{Text: "## Causal Analysis Context\n- **outage** (event)\n"}
	p := Prompt(ctx, intent.Why, "why did the outage happen?")
	if !strings.Contains(p, "why did the outage happen?") {
		t.Error("Prompt() missing query")
	}
	if !strings.Contains(p, "WHY") {
		t.Error("Prompt() missing intent")
	}
	if !strings.Contains(p, "outage") {
		t.Error("Prompt() missing linearized context")
	}
}
