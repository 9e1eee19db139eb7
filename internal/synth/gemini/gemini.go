// Package gemini implements synth.Synthesizer against the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/linearize"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/synth"
)

const DefaultModel = "gemini-2.0-flash"

var _ synth.Synthesizer = (*Synthesizer)(nil)

// Synthesizer implements synth.Synthesizer against the Gemini API.
type Synthesizer struct {
	client *genai.Client
	model  string
}

// New constructs a Synthesizer. If model is empty, DefaultModel is used.
func New(ctx context.Context, apiKey, model string) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini synthesizer: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini synthesizer: new client: %w", err)
	}
	return &Synthesizer{client: client, model: model}, nil
}

// Synthesize implements synth.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, linearized linearize.LinearizedContext, it intent.Type, query string) (synth.Answer, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(synth.Prompt(linearized, it, query)), nil)
	if err != nil {
		return synth.Answer{}, merrors.Wrap(merrors.KindBackend, "synth.gemini", err)
	}
	text := resp.Text()
	if text == "" {
		return synth.Answer{}, merrors.New(merrors.KindBackend, "synth.gemini", "empty response")
	}
	return synth.Answer{Text: text}, nil
}
