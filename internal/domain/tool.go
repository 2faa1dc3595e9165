package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool for the LLM function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents an LLM's request to invoke a tool. The arguments are
// untrusted model output and must pass through the sanitizer before any
// executor sees them.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool. Content is fed back to the
// model; ImageURLs are surfaced to the end user by the channel layer.
type ToolResult struct {
	Content   string   `json:"content"`
	IsError   bool     `json:"is_error,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Tool is the interface every tool must implement. Execute must convert its
// own I/O failures into a ToolResult with IsError set rather than returning
// an error, so the agent loop can keep going.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup and schema enumeration.
type ToolExecutor interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
}
