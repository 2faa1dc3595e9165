package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"pressbot/internal/domain"
)

// SearchImagesTool finds stock images for the user's articles.
type SearchImagesTool struct {
	searcher domain.ImageSearcher
	logger   *slog.Logger
}

// NewSearchImagesTool creates the image search tool.
func NewSearchImagesTool(searcher domain.ImageSearcher, logger *slog.Logger) *SearchImagesTool {
	return &SearchImagesTool{searcher: searcher, logger: logger}
}

type searchImagesParams struct {
	Query string  `json:"query"`
	Limit float64 `json:"limit,omitempty"`
}

func (t *SearchImagesTool) Name() string { return "search_images" }
func (t *SearchImagesTool) Description() string {
	return "Search openly licensed stock images by keyword."
}

func (t *SearchImagesTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search keywords"},
				"limit": {"type": "number", "description": "Maximum results"}
			},
			"required": ["query"]
		}`),
	}
}

func (t *SearchImagesTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.search_images", t.logger, params,
		func(ctx context.Context, span trace.Span, p searchImagesParams) (any, error) {
			if err := RequireField("query", p.Query); err != nil {
				return nil, err
			}
			results, err := t.searcher.Search(ctx, p.Query, int(p.Limit))
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return TextResult("No images found for that query."), nil
			}
			return imageResult(results), nil
		},
	)
}

// GenerateImageTool produces images from a text prompt.
type GenerateImageTool struct {
	generator domain.ImageGenerator
	logger    *slog.Logger
}

// NewGenerateImageTool creates the image generation tool.
func NewGenerateImageTool(generator domain.ImageGenerator, logger *slog.Logger) *GenerateImageTool {
	return &GenerateImageTool{generator: generator, logger: logger}
}

type generateImageParams struct {
	Prompt string  `json:"prompt"`
	Count  float64 `json:"count,omitempty"`
}

func (t *GenerateImageTool) Name() string { return "generate_image" }
func (t *GenerateImageTool) Description() string {
	return "Generate an illustration from a text prompt."
}

func (t *GenerateImageTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {"type": "string", "description": "What the image should show"},
				"count": {"type": "number", "description": "How many images to generate"}
			},
			"required": ["prompt"]
		}`),
	}
}

func (t *GenerateImageTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.generate_image", t.logger, params,
		func(ctx context.Context, span trace.Span, p generateImageParams) (any, error) {
			if err := RequireField("prompt", p.Prompt); err != nil {
				return nil, err
			}
			results, err := t.generator.Generate(ctx, p.Prompt, int(p.Count))
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return TextResult("The image provider returned nothing."), nil
			}
			return imageResult(results), nil
		},
	)
}

// imageResult builds a ToolResult carrying both a text summary for the model
// and the raw URLs for the channel to render.
func imageResult(results []domain.ImageResult) *domain.ToolResult {
	var b strings.Builder
	urls := make([]string, 0, len(results))
	for i, r := range results {
		urls = append(urls, r.URL)
		fmt.Fprintf(&b, "%d. %s", i+1, r.URL)
		if r.Title != "" {
			fmt.Fprintf(&b, " (%s", r.Title)
			if r.Creator != "" {
				fmt.Fprintf(&b, " by %s", r.Creator)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return &domain.ToolResult{Content: b.String(), ImageURLs: urls}
}
