package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the hosted model used when LLM_PROVIDER=gemini.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient runs prompts against the Gemini API. Credentials come from
// the environment (GEMINI_API_KEY or application default credentials).
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed client. An empty model selects
// DefaultGeminiModel.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response from model %q", c.model)
	}
	return text, nil
}

var _ Client = (*GeminiClient)(nil)
