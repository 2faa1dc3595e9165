package domain

import "context"

// SettingsStore persists per-chat bot preferences (e.g. default article
// language). Get returns ErrSettingNotFound for unknown keys.
type SettingsStore interface {
	Get(ctx context.Context, chatID, key string) (string, error)
	Set(ctx context.Context, chatID, key, value string) error
	List(ctx context.Context, chatID string) (map[string]string, error)
}
