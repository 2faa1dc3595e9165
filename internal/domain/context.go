package domain

import "context"

type ctxKey string

const chatCtxKey ctxKey = "chat_id"

// ContextWithChatID returns a new context carrying the chat identifier.
func ContextWithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatCtxKey, chatID)
}

// ChatIDFromContext extracts the chat identifier from the context.
// Returns empty string if not set.
func ChatIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(chatCtxKey).(string); ok {
		return v
	}
	return ""
}
