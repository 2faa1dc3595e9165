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

const defaultListLimit = 20

// ArticleTools bundles the blog article tools around one ArticleService.
type ArticleTools struct {
	svc    domain.ArticleService
	logger *slog.Logger
}

// NewArticleTools creates the article tool set.
func NewArticleTools(svc domain.ArticleService, logger *slog.Logger) *ArticleTools {
	return &ArticleTools{svc: svc, logger: logger}
}

// All returns every article tool for registration.
func (a *ArticleTools) All() []domain.Tool {
	return []domain.Tool{
		&createArticleTool{a},
		&editArticleTool{a},
		&deleteArticleTool{a},
		&getArticleTool{a},
		&listArticlesTool{a},
		&publishArticleTool{a},
	}
}

// formatArticle renders an article for the model.
func formatArticle(art *domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\nTitle: %s\nStatus: %s\n", art.ID, art.Title, art.Status)
	if len(art.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(art.Tags, ", "))
	}
	if art.Body != "" {
		fmt.Fprintf(&b, "\n%s\n", art.Body)
	}
	return b.String()
}

// --- create_article ---

type createArticleTool struct{ *ArticleTools }

type createArticleParams struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tags  string `json:"tags,omitempty"` // comma-separated
}

func (t *createArticleTool) Name() string { return "create_article" }
func (t *createArticleTool) Description() string {
	return "Create a new draft blog article with a title and body."
}

func (t *createArticleTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Article title"},
				"body": {"type": "string", "description": "Article body in markdown"},
				"tags": {"type": "string", "description": "Comma-separated tags"}
			},
			"required": ["title", "body"]
		}`),
	}
}

func (t *createArticleTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.create_article", t.logger, params,
		func(ctx context.Context, span trace.Span, p createArticleParams) (any, error) {
			if err := RequireField("title", p.Title); err != nil {
				return nil, err
			}
			if err := RequireField("body", p.Body); err != nil {
				return nil, err
			}
			art, err := t.svc.Create(ctx, domain.ArticleDraftInput{
				Title: p.Title,
				Body:  p.Body,
				Tags:  splitTags(p.Tags),
			})
			if err != nil {
				return nil, err
			}
			t.logger.Info("article created", "id", art.ID, "title", art.Title)
			return TextResult(fmt.Sprintf("Draft created.\n%s", formatArticle(art))), nil
		},
	)
}

// --- edit_article ---

type editArticleTool struct{ *ArticleTools }

type editArticleParams struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Tags  string `json:"tags,omitempty"`
}

func (t *editArticleTool) Name() string { return "edit_article" }
func (t *editArticleTool) Description() string {
	return "Edit an existing article. Only the provided fields change."
}

func (t *editArticleTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Article ID"},
				"title": {"type": "string", "description": "New title"},
				"body": {"type": "string", "description": "New body"},
				"tags": {"type": "string", "description": "Comma-separated tags"}
			},
			"required": ["id"]
		}`),
	}
}

func (t *editArticleTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.edit_article", t.logger, params,
		func(ctx context.Context, span trace.Span, p editArticleParams) (any, error) {
			if err := RequireField("id", p.ID); err != nil {
				return nil, err
			}
			if p.Title == "" && p.Body == "" && p.Tags == "" {
				return ErrResult("nothing to change: provide title, body, or tags")
			}
			art, err := t.svc.Update(ctx, p.ID, domain.ArticleDraftInput{
				Title: p.Title,
				Body:  p.Body,
				Tags:  splitTags(p.Tags),
			})
			if err != nil {
				return nil, err
			}
			t.logger.Info("article updated", "id", art.ID)
			return TextResult(fmt.Sprintf("Article updated.\n%s", formatArticle(art))), nil
		},
	)
}

// --- delete_article ---

type deleteArticleTool struct{ *ArticleTools }

type deleteArticleParams struct {
	ID string `json:"id"`
}

func (t *deleteArticleTool) Name() string        { return "delete_article" }
func (t *deleteArticleTool) Description() string { return "Delete an article permanently." }

func (t *deleteArticleTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Article ID"}
			},
			"required": ["id"]
		}`),
	}
}

func (t *deleteArticleTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.delete_article", t.logger, params,
		func(ctx context.Context, span trace.Span, p deleteArticleParams) (any, error) {
			if err := RequireField("id", p.ID); err != nil {
				return nil, err
			}
			if err := t.svc.Delete(ctx, p.ID); err != nil {
				return nil, err
			}
			t.logger.Info("article deleted", "id", p.ID)
			return TextResult(fmt.Sprintf("Article %s deleted.", p.ID)), nil
		},
	)
}

// --- get_article ---

type getArticleTool struct{ *ArticleTools }

type getArticleParams struct {
	ID string `json:"id"`
}

func (t *getArticleTool) Name() string        { return "get_article" }
func (t *getArticleTool) Description() string { return "Fetch one article including its full body." }

func (t *getArticleTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Article ID"}
			},
			"required": ["id"]
		}`),
	}
}

func (t *getArticleTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.get_article", t.logger, params,
		func(ctx context.Context, span trace.Span, p getArticleParams) (any, error) {
			if err := RequireField("id", p.ID); err != nil {
				return nil, err
			}
			art, err := t.svc.Get(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			return TextResult(formatArticle(art)), nil
		},
	)
}

// --- list_articles ---

type listArticlesTool struct{ *ArticleTools }

type listArticlesParams struct {
	Limit float64 `json:"limit,omitempty"`
}

func (t *listArticlesTool) Name() string { return "list_articles" }
func (t *listArticlesTool) Description() string {
	return "List the user's articles with their IDs, titles, and statuses."
}

func (t *listArticlesTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "number", "description": "Maximum articles to return"}
			}
		}`),
	}
}

func (t *listArticlesTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.list_articles", t.logger, params,
		func(ctx context.Context, span trace.Span, p listArticlesParams) (any, error) {
			limit := int(p.Limit)
			if limit <= 0 {
				limit = defaultListLimit
			}
			arts, err := t.svc.List(ctx, limit)
			if err != nil {
				return nil, err
			}
			if len(arts) == 0 {
				return TextResult("No articles found."), nil
			}
			var b strings.Builder
			for i, art := range arts {
				fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, art.ID, art.Title, art.Status)
			}
			return TextResult(b.String()), nil
		},
	)
}

// --- publish_article ---

type publishArticleTool struct{ *ArticleTools }

type publishArticleParams struct {
	ID string `json:"id"`
}

func (t *publishArticleTool) Name() string        { return "publish_article" }
func (t *publishArticleTool) Description() string { return "Publish a draft article." }

func (t *publishArticleTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Article ID"}
			},
			"required": ["id"]
		}`),
	}
}

func (t *publishArticleTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.publish_article", t.logger, params,
		func(ctx context.Context, span trace.Span, p publishArticleParams) (any, error) {
			if err := RequireField("id", p.ID); err != nil {
				return nil, err
			}
			art, err := t.svc.Publish(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			t.logger.Info("article published", "id", art.ID)
			return TextResult(fmt.Sprintf("Published %q (%s).", art.Title, art.ID)), nil
		},
	)
}

// splitTags parses a comma-separated tag string, trimming whitespace and
// dropping empties.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
