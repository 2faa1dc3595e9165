package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pressbot/internal/domain"
	"pressbot/internal/infra/config"
)

const (
	defaultGenerateModel = "dall-e-3"
	maxGeneratedImages   = 4
	maxGenerateBody      = 1 << 20 // 1 MB
)

// Generator produces images through an OpenAI-compatible images endpoint.
// It shares the LLM provider's credentials and base URL.
type Generator struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewGenerator creates an image generator. The llm config supplies the API
// endpoint and key; images config supplies the model.
func NewGenerator(llmCfg config.LLMConfig, imgCfg config.ImagesConfig, logger *slog.Logger) *Generator {
	baseURL := strings.TrimRight(llmCfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := imgCfg.GenerateModel
	if model == "" {
		model = defaultGenerateModel
	}
	return &Generator{
		model:   model,
		apiKey:  llmCfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate implements domain.ImageGenerator.
func (g *Generator) Generate(ctx context.Context, prompt string, n int) ([]domain.ImageResult, error) {
	if n <= 0 {
		n = 1
	}
	if n > maxGeneratedImages {
		n = maxGeneratedImages
	}
	// dall-e-3 only supports one image per request.
	if g.model == "dall-e-3" {
		n = 1
	}

	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, N: n})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxGenerateBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image generation returned %d", domain.ErrProviderError, resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]domain.ImageResult, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.URL == "" {
			continue
		}
		results = append(results, domain.ImageResult{URL: d.URL})
	}

	g.logger.Debug("image generation completed", "model", g.model, "images", len(results))
	return results, nil
}

var _ domain.ImageGenerator = (*Generator)(nil)
