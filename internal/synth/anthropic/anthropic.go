// Package anthropic implements synth.Synthesizer against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/linearize"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/synth"
)

const (
	DefaultModel = "claude-sonnet-4-5"
	maxTokens    = 2048
)

var _ synth.Synthesizer = (*Synthesizer)(nil)

// Synthesizer implements synth.Synthesizer against the Anthropic API.
type Synthesizer struct {
	client anthropic.Client
	model  string
}

// New constructs a Synthesizer. If model is empty, DefaultModel is used.
func New(apiKey, model string) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic synthesizer: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Synthesizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Synthesize implements synth.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, linearized linearize.LinearizedContext, it intent.Type, query string) (synth.Answer, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(synth.Prompt(linearized, it, query))),
		},
	})
	if err != nil {
		return synth.Answer{}, merrors.Wrap(merrors.KindBackend, "synth.anthropic", err)
	}

	var parts []string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			parts = append(parts, resp.Content[i].Text)
		}
	}
	text := strings.Join(parts, "")
	if text == "" {
		return synth.Answer{}, merrors.New(merrors.KindBackend, "synth.anthropic", "empty response")
	}
	return synth.Answer{Text: text}, nil
}
