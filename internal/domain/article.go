package domain

import (
	"context"
	"time"
)

// ArticleStatus is the publication state of a blog article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

// Article is a blog-CMS article as the bot sees it.
type Article struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Tags      []string      `json:"tags,omitempty"`
	Status    ArticleStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ArticleDraftInput holds the fields a caller may set when creating or
// editing an article. Empty fields are left unchanged on edit.
type ArticleDraftInput struct {
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// ArticleService is the blog-CMS collaborator the article tools delegate to.
type ArticleService interface {
	Create(ctx context.Context, in ArticleDraftInput) (*Article, error)
	Update(ctx context.Context, id string, in ArticleDraftInput) (*Article, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Article, error)
	List(ctx context.Context, limit int) ([]Article, error)
	Publish(ctx context.Context, id string) (*Article, error)
}
