// Package gemini implements classify.Classifier on top of Gemini's
// JSON-mode response schema.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/moolen/magma/internal/classify"
	"github.com/moolen/magma/internal/intent"
	"github.com/moolen/magma/internal/merrors"
)

const DefaultModel = "gemini-2.0-flash"

var _ classify.Classifier = (*Classifier)(nil)

// Classifier implements classify.Classifier against the Gemini API.
type Classifier struct {
	client *genai.Client
	model  string
}

// New constructs a Classifier. If model is empty, DefaultModel is used.
func New(ctx context.Context, apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini classifier: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: new client: %w", err)
	}
	return &Classifier{client: client, model: model}, nil
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, query string, context []string) (intent.MAGMAIntent, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(classify.Prompt(query, context)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return intent.MAGMAIntent{}, merrors.Wrap(merrors.KindBackend, "classify.gemini", err)
	}

	text := resp.Text()
	if text == "" {
		return intent.MAGMAIntent{}, merrors.New(merrors.KindBackend, "classify.gemini", "empty response")
	}

	it, err := classify.DecodeResult([]byte(text))
	if err != nil {
		return intent.MAGMAIntent{}, merrors.Wrap(merrors.KindParse, "classify.gemini", err)
	}
	if err := it.Validate(); err != nil {
		return intent.MAGMAIntent{}, err
	}
	return it, nil
}
