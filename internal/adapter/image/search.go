package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pressbot/internal/domain"
	"pressbot/internal/infra/config"
)

const (
	defaultSearchBaseURL = "https://api.openverse.org/v1"
	maxSearchResults     = 10
	maxSearchBody        = 1 << 20 // 1 MB
)

// Searcher finds openly licensed stock images via an Openverse-compatible
// API. No API key is required.
type Searcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSearcher creates an image searcher from config.
func NewSearcher(cfg config.ImagesConfig, logger *slog.Logger) *Searcher {
	baseURL := strings.TrimRight(cfg.SearchBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultSearchBaseURL
	}
	return &Searcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type searchResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Creator string `json:"creator"`
	} `json:"results"`
}

// Search implements domain.ImageSearcher.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]domain.ImageResult, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	u := s.baseURL + "/images/?q=" + url.QueryEscape(query) + "&page_size=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image search returned %d", domain.ErrProviderError, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]domain.ImageResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, domain.ImageResult{
			URL:     r.URL,
			Title:   r.Title,
			Creator: r.Creator,
		})
	}

	s.logger.Debug("image search completed", "query", query, "results", len(results))
	return results, nil
}

var _ domain.ImageSearcher = (*Searcher)(nil)
