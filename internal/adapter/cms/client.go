package cms

import (
	"bytes"
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

	"golang.org/x/time/rate"

	"pressbot/internal/domain"
	"pressbot/internal/infra/config"
)

// maxResponseBody bounds how much of a CMS response we read.
const maxResponseBody = 4 * 1024 * 1024 // 4 MB

const defaultTimeout = 15 * time.Second

// Client is a REST client for the blog CMS, implementing
// domain.ArticleService. Outbound calls are throttled client-side so a burst
// of tool calls cannot hammer the CMS.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a CMS client from config.
func NewClient(cfg config.CMSConfig, logger *slog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: config.Duration(cfg.Timeout, defaultTimeout)},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:  logger,
	}
}

// Create implements domain.ArticleService.
func (c *Client) Create(ctx context.Context, in domain.ArticleDraftInput) (*domain.Article, error) {
	var out domain.Article
	if err := c.do(ctx, http.MethodPost, "/articles", in, &out); err != nil {
		return nil, domain.WrapOp("cms.Create", err)
	}
	return &out, nil
}

// Update implements domain.ArticleService. Empty input fields are left
// unchanged server-side.
func (c *Client) Update(ctx context.Context, id string, in domain.ArticleDraftInput) (*domain.Article, error) {
	var out domain.Article
	if err := c.do(ctx, http.MethodPatch, "/articles/"+url.PathEscape(id), in, &out); err != nil {
		return nil, domain.WrapOp("cms.Update", err)
	}
	return &out, nil
}

// Delete implements domain.ArticleService.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/articles/"+url.PathEscape(id), nil, nil); err != nil {
		return domain.WrapOp("cms.Delete", err)
	}
	return nil
}

// Get implements domain.ArticleService.
func (c *Client) Get(ctx context.Context, id string) (*domain.Article, error) {
	var out domain.Article
	if err := c.do(ctx, http.MethodGet, "/articles/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, domain.WrapOp("cms.Get", err)
	}
	return &out, nil
}

// List implements domain.ArticleService.
func (c *Client) List(ctx context.Context, limit int) ([]domain.Article, error) {
	path := "/articles"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Article
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, domain.WrapOp("cms.List", err)
	}
	return out, nil
}

// Publish implements domain.ArticleService.
func (c *Client) Publish(ctx context.Context, id string) (*domain.Article, error) {
	var out domain.Article
	if err := c.do(ctx, http.MethodPost, "/articles/"+url.PathEscape(id)+"/publish", nil, &out); err != nil {
		return nil, domain.WrapOp("cms.Publish", err)
	}
	return &out, nil
}

// do performs one throttled JSON request against the CMS.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapHTTPError(resp.StatusCode, respBody)
	}

	c.logger.Debug("cms request completed", "method", method, "path", path, "status", resp.StatusCode)

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// mapHTTPError maps a CMS status code to a domain error.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("CMS error %d: %s", statusCode, body)

	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrArticleNotFound, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimit, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", domain.ErrProviderError, detail)
	default:
		return fmt.Errorf("%s", detail)
	}
}

var _ domain.ArticleService = (*Client)(nil)
