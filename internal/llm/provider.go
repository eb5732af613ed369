package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// NewFromEnv builds a Client from the LLM_PROVIDER environment variable:
// "ollama" (default) or "gemini". Model overrides come from LLM_MODEL.
func NewFromEnv(ctx context.Context, log zerolog.Logger) (Client, error) {
	model := os.Getenv("LLM_MODEL")

	switch provider := os.Getenv("LLM_PROVIDER"); provider {
	case "", "ollama":
		return NewOllamaClient("", model, log), nil
	case "gemini":
		return NewGeminiClient(ctx, model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
