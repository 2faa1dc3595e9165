package domain

import "context"

// ImageResult is a single image found or generated for the user.
type ImageResult struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Creator string `json:"creator,omitempty"`
}

// ImageSearcher finds stock images matching a free-text query.
type ImageSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]ImageResult, error)
}

// ImageGenerator produces images from a text prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, n int) ([]ImageResult, error)
}
