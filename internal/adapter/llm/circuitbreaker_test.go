package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/sony/gobreaker/v2"

	"pressbot/internal/domain"
	"pressbot/internal/infra/config"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("provider down")
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "ok"}}, nil
}

func (f *flakyProvider) Name() string { return "flaky" }

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &flakyProvider{}
	cb := NewCircuitBreakerProvider(inner, config.BreakerConfig{}, newTestLogger())

	resp, err := cb.Chat(context.Background(), domain.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if cb.Name() != "flaky" {
		t.Errorf("Name = %q", cb.Name())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	inner := &flakyProvider{failures: 1000}
	cb := NewCircuitBreakerProvider(inner, config.BreakerConfig{MaxFailures: 3}, newTestLogger())

	for i := 0; i < 3; i++ {
		if _, err := cb.Chat(context.Background(), domain.ChatRequest{}); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	callsBefore := inner.calls
	if _, err := cb.Chat(context.Background(), domain.ChatRequest{}); err == nil {
		t.Fatal("open circuit should fail fast")
	}
	if inner.calls != callsBefore {
		t.Error("open circuit must not reach the provider")
	}
}

func TestCircuitBreakerStaysClosedOnSuccess(t *testing.T) {
	inner := &flakyProvider{}
	cb := NewCircuitBreakerProvider(inner, config.BreakerConfig{MaxFailures: 2}, newTestLogger())

	for i := 0; i < 10; i++ {
		if _, err := cb.Chat(context.Background(), domain.ChatRequest{}); err != nil {
			t.Fatalf("Chat: %v", err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}
