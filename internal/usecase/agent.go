package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"pressbot/internal/domain"
	"pressbot/internal/infra/metrics"
	"pressbot/internal/infra/tracer"
	"pressbot/internal/security"
)

// noAnswerNotice is the terminal fallback: the loop must never return empty
// output, even when the model produced neither text nor usable tool results.
const noAnswerNotice = "I wasn't able to come up with an answer this time. Please try rephrasing your request."

// Reply is the outcome of handling one inbound user message.
type Reply struct {
	Text        string
	ImageURLs   []string // collected from tool results, for the channel to render
	RateLimited bool
}

// EngineDeps holds injected dependencies for the agent engine.
type EngineDeps struct {
	LLM      domain.LLMProvider
	Tools    domain.ToolExecutor
	Sessions *SessionStore
	Limiter  *RateLimiter
	Logger   *slog.Logger

	SystemPrompt    string
	MaxIterations   int
	ToolTimeout     time.Duration
	RateLimitNotice string
}

// Engine drives the tool-calling loop: it alternates model calls and tool
// execution until the model produces final text or the iteration budget is
// exhausted, and always returns non-empty output.
type Engine struct {
	deps EngineDeps
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(deps EngineDeps) *Engine {
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = 10
	}
	if deps.ToolTimeout <= 0 {
		deps.ToolTimeout = 30 * time.Second
	}
	if deps.RateLimitNotice == "" {
		deps.RateLimitNotice = "You're sending messages too quickly. Please wait a moment and try again."
	}
	return &Engine{deps: deps}
}

// Handle processes a single inbound user message end to end. Model and tool
// failures are recovered into user-safe text; the only error returned is a
// cancelled context.
func (e *Engine) Handle(ctx context.Context, chatID, userText string) (Reply, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.handle_message")
	defer span.End()

	if !e.deps.Limiter.Allow(chatID) {
		metrics.RateLimitedTotal.Inc()
		e.deps.Logger.Debug("message rate limited", "chat_id", chatID)
		return Reply{Text: e.deps.RateLimitNotice, RateLimited: true}, nil
	}

	ctx = domain.ContextWithChatID(ctx, chatID)

	sess := e.deps.Sessions.GetOrCreate(chatID)
	sess.Append(domain.Message{
		Role:    domain.RoleUser,
		Content: userText,
	})

	var (
		lastText  string   // last model text seen, for the fallback chain
		toolTexts []string // collected tool result texts, ditto
		imageURLs []string
	)

	for i := 0; i < e.deps.MaxIterations; i++ {
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		span.AddEvent("agent.iteration", trace.WithAttributes(tracer.IntAttr("iteration", i)))

		req := domain.ChatRequest{
			Messages: e.assembleContext(sess),
			Tools:    e.deps.Tools.Schemas(),
		}

		llmCtx, llmSpan := tracer.StartSpan(ctx, "agent.llm_call")
		resp, err := e.deps.LLM.Chat(llmCtx, req)
		llmSpan.End()

		if err != nil {
			metrics.LLMCallsTotal.WithLabelValues("error").Inc()
			tracer.RecordError(span, err)
			e.deps.Logger.Warn("llm call failed", "chat_id", chatID, "iteration", i, "error", err)
			return e.finish(sess, e.fallback(lastText, toolTexts, security.RedactError(err)), imageURLs), nil
		}
		metrics.LLMCallsTotal.WithLabelValues("ok").Inc()

		msg := resp.Message
		if msg.Content != "" {
			lastText = msg.Content
		}

		e.deps.Logger.Debug("llm response",
			"chat_id", chatID,
			"iteration", i,
			"tool_calls", len(msg.ToolCalls),
			"tokens", resp.Usage.TotalTokens,
		)

		sess.Append(msg)

		// No tool calls = final response.
		if len(msg.ToolCalls) == 0 {
			tracer.SetOK(span)
			text := msg.Content
			if text == "" {
				text = e.fallback(lastText, toolTexts, noAnswerNotice)
				sess.Append(domain.Message{Role: domain.RoleAssistant, Content: text})
			}
			return Reply{Text: text, ImageURLs: imageURLs}, nil
		}

		// Execute tool calls in parallel; results are collected in an
		// indexed slice to preserve original call order.
		results := make([]*domain.ToolResult, len(msg.ToolCalls))
		var wg sync.WaitGroup
		for idx, call := range msg.ToolCalls {
			wg.Add(1)
			go func(idx int, call domain.ToolCall) {
				defer wg.Done()
				results[idx] = e.executeTool(ctx, call)
			}(idx, call)
		}
		wg.Wait()

		for idx, res := range results {
			call := msg.ToolCalls[idx]
			sess.Append(domain.Message{
				Role:       domain.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    res.Content,
			})
			if !res.IsError {
				toolTexts = append(toolTexts, res.Content)
			}
			imageURLs = append(imageURLs, res.ImageURLs...)
		}
	}

	// Iteration budget exhausted: the cap is the loop's termination
	// guarantee when the model keeps calling tools.
	tracer.RecordError(span, domain.ErrMaxIterations)
	e.deps.Logger.Warn("agent reached max iterations", "chat_id", chatID, "max", e.deps.MaxIterations)
	return e.finish(sess, e.fallback(lastText, toolTexts, noAnswerNotice), imageURLs), nil
}

// assembleContext builds the model input: system prompt plus the trimmed
// session history.
func (e *Engine) assembleContext(sess *Session) []domain.Message {
	history := sess.Messages()
	msgs := make([]domain.Message, 0, len(history)+1)
	if e.deps.SystemPrompt != "" {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: e.deps.SystemPrompt})
	}
	return append(msgs, history...)
}

// executeTool sanitizes one tool call's arguments and runs it through the
// registry, bounded by the tool timeout. Every failure mode folds into the
// returned result; the loop keeps going regardless.
func (e *Engine) executeTool(ctx context.Context, call domain.ToolCall) *domain.ToolResult {
	ctx, span := tracer.StartSpan(ctx, "agent.execute_tool",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
	)
	defer span.End()

	tool, err := e.deps.Tools.Get(call.Name)
	if err != nil {
		// The model may hallucinate a tool name; answer it rather than fail.
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "unknown").Inc()
		tracer.RecordError(span, err)
		return &domain.ToolResult{
			Content: "unknown tool " + call.Name + "; available tools are listed in the schema",
			IsError: true,
		}
	}

	args := SanitizeArguments(call.Arguments)

	toolCtx, cancel := context.WithTimeout(ctx, e.deps.ToolTimeout)
	defer cancel()

	result, err := tool.Execute(toolCtx, args)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		tracer.RecordError(span, err)
		return &domain.ToolResult{Content: security.RedactError(err), IsError: true}
	}
	if result == nil {
		result = &domain.ToolResult{}
	}
	if result.Content == "" {
		result.Content = "(no output)"
	}

	status := "ok"
	if result.IsError {
		status = "error"
	} else {
		tracer.SetOK(span)
	}
	metrics.ToolCallsTotal.WithLabelValues(call.Name, status).Inc()
	return result
}

// fallback picks the best available final content: the last model text, then
// the concatenated tool result texts, then the terminal notice.
func (e *Engine) fallback(lastText string, toolTexts []string, terminal string) string {
	if lastText != "" {
		return lastText
	}
	if len(toolTexts) > 0 {
		return strings.Join(toolTexts, "\n")
	}
	return terminal
}

// finish appends the final content as an assistant message and builds the reply.
func (e *Engine) finish(sess *Session, text string, imageURLs []string) Reply {
	sess.Append(domain.Message{Role: domain.RoleAssistant, Content: text})
	return Reply{Text: text, ImageURLs: imageURLs}
}
