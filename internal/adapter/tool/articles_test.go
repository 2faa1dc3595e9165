package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"pressbot/internal/domain"
)

// fakeArticleService records calls and serves canned articles.
type fakeArticleService struct {
	articles map[string]*domain.Article
	lastIn   domain.ArticleDraftInput
	err      error
}

func newFakeArticleService() *fakeArticleService {
	return &fakeArticleService{articles: make(map[string]*domain.Article)}
}

func (f *fakeArticleService) Create(ctx context.Context, in domain.ArticleDraftInput) (*domain.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastIn = in
	art := &domain.Article{ID: fmt.Sprintf("a%d", len(f.articles)+1), Title: in.Title, Body: in.Body, Tags: in.Tags, Status: domain.ArticleDraft}
	f.articles[art.ID] = art
	return art, nil
}

func (f *fakeArticleService) Update(ctx context.Context, id string, in domain.ArticleDraftInput) (*domain.Article, error) {
	art, ok := f.articles[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}
	if in.Title != "" {
		art.Title = in.Title
	}
	if in.Body != "" {
		art.Body = in.Body
	}
	return art, nil
}

func (f *fakeArticleService) Delete(ctx context.Context, id string) error {
	if _, ok := f.articles[id]; !ok {
		return domain.ErrArticleNotFound
	}
	delete(f.articles, id)
	return nil
}

func (f *fakeArticleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	art, ok := f.articles[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}
	return art, nil
}

func (f *fakeArticleService) List(ctx context.Context, limit int) ([]domain.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Article, 0, len(f.articles))
	for _, a := range f.articles {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeArticleService) Publish(ctx context.Context, id string) (*domain.Article, error) {
	art, ok := f.articles[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}
	art.Status = domain.ArticlePublished
	return art, nil
}

func articleToolByName(t *testing.T, tools *ArticleTools, name string) domain.Tool {
	t.Helper()
	for _, tl := range tools.All() {
		if tl.Name() == name {
			return tl
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func TestCreateArticle(t *testing.T) {
	svc := newFakeArticleService()
	tools := NewArticleTools(svc, testLogger())
	create := articleToolByName(t, tools, "create_article")

	res, err := create.Execute(context.Background(), json.RawMessage(
		`{"title":"Hello","body":"First post","tags":"go, bots"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "Draft created") {
		t.Errorf("Content = %q", res.Content)
	}
	if len(svc.lastIn.Tags) != 2 || svc.lastIn.Tags[0] != "go" {
		t.Errorf("tags = %v", svc.lastIn.Tags)
	}
}

func TestCreateArticleMissingTitle(t *testing.T) {
	tools := NewArticleTools(newFakeArticleService(), testLogger())
	create := articleToolByName(t, tools, "create_article")

	res, err := create.Execute(context.Background(), json.RawMessage(`{"body":"no title"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for missing title")
	}
}

func TestEditArticle(t *testing.T) {
	svc := newFakeArticleService()
	svc.articles["a1"] = &domain.Article{ID: "a1", Title: "Old"}
	tools := NewArticleTools(svc, testLogger())
	edit := articleToolByName(t, tools, "edit_article")

	res, err := edit.Execute(context.Background(), json.RawMessage(`{"id":"a1","title":"New"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if svc.articles["a1"].Title != "New" {
		t.Errorf("title = %q", svc.articles["a1"].Title)
	}
}

func TestEditArticleNothingToChange(t *testing.T) {
	svc := newFakeArticleService()
	svc.articles["a1"] = &domain.Article{ID: "a1"}
	tools := NewArticleTools(svc, testLogger())
	edit := articleToolByName(t, tools, "edit_article")

	res, _ := edit.Execute(context.Background(), json.RawMessage(`{"id":"a1"}`))
	if !res.IsError {
		t.Error("expected error result when no fields provided")
	}
}

func TestDeleteArticle(t *testing.T) {
	svc := newFakeArticleService()
	svc.articles["a1"] = &domain.Article{ID: "a1"}
	tools := NewArticleTools(svc, testLogger())
	del := articleToolByName(t, tools, "delete_article")

	res, err := del.Execute(context.Background(), json.RawMessage(`{"id":"a1"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if _, ok := svc.articles["a1"]; ok {
		t.Error("article should be deleted")
	}
}

func TestGetArticleNotFound(t *testing.T) {
	tools := NewArticleTools(newFakeArticleService(), testLogger())
	get := articleToolByName(t, tools, "get_article")

	res, err := get.Execute(context.Background(), json.RawMessage(`{"id":"missing"}`))
	if err != nil {
		t.Fatalf("Execute must fold failures into the result, got %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for missing article")
	}
	if !strings.Contains(res.Content, "not found") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestListArticles(t *testing.T) {
	svc := newFakeArticleService()
	svc.articles["a1"] = &domain.Article{ID: "a1", Title: "One", Status: domain.ArticleDraft}
	svc.articles["a2"] = &domain.Article{ID: "a2", Title: "Two", Status: domain.ArticlePublished}
	tools := NewArticleTools(svc, testLogger())
	list := articleToolByName(t, tools, "list_articles")

	res, err := list.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if !strings.Contains(res.Content, "One") || !strings.Contains(res.Content, "Two") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestListArticlesEmpty(t *testing.T) {
	tools := NewArticleTools(newFakeArticleService(), testLogger())
	list := articleToolByName(t, tools, "list_articles")

	res, _ := list.Execute(context.Background(), json.RawMessage(`{}`))
	if res.IsError || !strings.Contains(res.Content, "No articles") {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestPublishArticle(t *testing.T) {
	svc := newFakeArticleService()
	svc.articles["a1"] = &domain.Article{ID: "a1", Title: "Ready", Status: domain.ArticleDraft}
	tools := NewArticleTools(svc, testLogger())
	publish := articleToolByName(t, tools, "publish_article")

	res, err := publish.Execute(context.Background(), json.RawMessage(`{"id":"a1"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	if svc.articles["a1"].Status != domain.ArticlePublished {
		t.Error("article should be published")
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" go , bots ,, ")
	if len(got) != 2 || got[0] != "go" || got[1] != "bots" {
		t.Errorf("splitTags = %v", got)
	}
	if splitTags("") != nil {
		t.Error("empty input should yield nil")
	}
}
