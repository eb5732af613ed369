package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultOllamaModel matches the model the service is tuned against.
	DefaultOllamaModel = "mistral-small3.2:latest"

	defaultOllamaTimeout = 5 * time.Minute
)

// OllamaClient calls a local Ollama daemon over its HTTP API
// (POST /api/generate, non-streaming).
type OllamaClient struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOllamaClient creates a client for the Ollama daemon at baseURL
// (e.g. "http://localhost:11434"). An empty baseURL falls back to the
// OLLAMA_HOST environment variable, then to localhost. An empty model
// selects DefaultOllamaModel.
func NewOllamaClient(baseURL, model string, log zerolog.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		baseURL:    baseURL,
		model:      model,
		timeout:    defaultOllamaTimeout,
		httpClient: &http.Client{},
		log:        log,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements Client. The incoming context bounds the call; a
// per-request timeout is applied on top so a wedged daemon cannot stall a
// statement job forever.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("base_url", c.baseURL).Msg("Ollama API connection error")
		return "", fmt.Errorf("ollama: connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama: API error: %d - %s", resp.StatusCode, string(body))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("ollama: empty response from model %q", c.model)
	}

	c.log.Debug().
		Str("model", out.Model).
		Int("response_len", len(out.Response)).
		Msg("Ollama response received")

	return out.Response, nil
}

// Ensure OllamaClient implements Client.
var _ Client = (*OllamaClient)(nil)
