package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"pressbot/internal/domain"
)

const maxSettingValueLen = 1024

// SettingsTools bundles the preference tools around one SettingsStore. The
// chat scope comes from the request context, never from model arguments, so
// the model cannot read another user's settings.
type SettingsTools struct {
	store  domain.SettingsStore
	logger *slog.Logger
}

// NewSettingsTools creates the settings tool set.
func NewSettingsTools(store domain.SettingsStore, logger *slog.Logger) *SettingsTools {
	return &SettingsTools{store: store, logger: logger}
}

// All returns every settings tool for registration.
func (s *SettingsTools) All() []domain.Tool {
	return []domain.Tool{
		&getSettingTool{s},
		&setSettingTool{s},
	}
}

// --- get_setting ---

type getSettingTool struct{ *SettingsTools }

type getSettingParams struct {
	Key string `json:"key,omitempty"`
}

func (t *getSettingTool) Name() string { return "get_setting" }
func (t *getSettingTool) Description() string {
	return "Read the user's bot preferences. Without a key, lists all settings."
}

func (t *getSettingTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"key": {"type": "string", "description": "Setting name, e.g. language or tone"}
			}
		}`),
	}
}

func (t *getSettingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.get_setting", t.logger, params,
		func(ctx context.Context, span trace.Span, p getSettingParams) (any, error) {
			chatID := domain.ChatIDFromContext(ctx)
			if chatID == "" {
				return nil, fmt.Errorf("no chat in context")
			}

			if p.Key == "" {
				all, err := t.store.List(ctx, chatID)
				if err != nil {
					return nil, err
				}
				if len(all) == 0 {
					return TextResult("No settings stored yet."), nil
				}
				var b strings.Builder
				for k, v := range all {
					fmt.Fprintf(&b, "%s = %s\n", k, v)
				}
				return TextResult(b.String()), nil
			}

			value, err := t.store.Get(ctx, chatID, p.Key)
			if errors.Is(err, domain.ErrSettingNotFound) {
				return TextResult(fmt.Sprintf("Setting %q is not set.", p.Key)), nil
			}
			if err != nil {
				return nil, err
			}
			return TextResult(fmt.Sprintf("%s = %s", p.Key, value)), nil
		},
	)
}

// --- set_setting ---

type setSettingTool struct{ *SettingsTools }

type setSettingParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (t *setSettingTool) Name() string { return "set_setting" }
func (t *setSettingTool) Description() string {
	return "Store a bot preference for this user, e.g. default article language."
}

func (t *setSettingTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"key": {"type": "string", "description": "Setting name"},
				"value": {"type": "string", "description": "Setting value"}
			},
			"required": ["key", "value"]
		}`),
	}
}

func (t *setSettingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.set_setting", t.logger, params,
		func(ctx context.Context, span trace.Span, p setSettingParams) (any, error) {
			chatID := domain.ChatIDFromContext(ctx)
			if chatID == "" {
				return nil, fmt.Errorf("no chat in context")
			}
			if err := RequireField("key", p.Key); err != nil {
				return nil, err
			}
			if err := RequireField("value", p.Value); err != nil {
				return nil, err
			}
			if len(p.Value) > maxSettingValueLen {
				return ErrResult("value too long: %d bytes (max %d)", len(p.Value), maxSettingValueLen)
			}
			if err := t.store.Set(ctx, chatID, p.Key, p.Value); err != nil {
				return nil, err
			}
			t.logger.Debug("setting stored", "chat_id", chatID, "key", p.Key)
			return TextResult(fmt.Sprintf("Saved %s = %s", p.Key, p.Value)), nil
		},
	)
}
