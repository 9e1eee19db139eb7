// Package anthropic implements classify.Classifier by forcing a
// tool-call against classify.Schema.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/moolen/magma/internal/classify"
	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/merrors"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	classifyToolName = "classify_intent"
	maxTokens        = 1024
)

var _ classify.Classifier = (*Classifier)(nil)

// Classifier implements classify.Classifier against the Anthropic API.
type Classifier struct {
	client anthropic.Client
	model  string
}

// New constructs a Classifier. If model is empty, DefaultModel is used.
func New(apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic classifier: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Classifier{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, query string, context []string) (intent.MAGMAIntent, error) {
	properties, _ := classify.Schema["properties"].(map[string]interface{})
	required, _ := classify.Schema["required"].([]string)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(classify.Prompt(query, context))),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        classifyToolName,
					Description: anthropic.String("Record the classified MAGMA intent for this query."),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: properties,
						Required:   required,
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: classifyToolName},
		},
	})
	if err != nil {
		return intent.MAGMAIntent{}, merrors.Wrap(merrors.KindBackend, "classify.anthropic", err)
	}

	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type != "tool_use" || block.Name != classifyToolName {
			continue
		}
		it, err := classify.DecodeResult(block.Input)
		if err != nil {
			return intent.MAGMAIntent{}, merrors.Wrap(merrors.KindParse, "classify.anthropic", err)
		}
		if err := it.Validate(); err != nil {
			return intent.MAGMAIntent{}, err
		}
		return it, nil
	}
	return intent.MAGMAIntent{}, merrors.New(merrors.KindBackend, "classify.anthropic", "model did not call classify_intent")
}
