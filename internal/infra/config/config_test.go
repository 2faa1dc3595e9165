package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
llm:
  api_key: "test-key"
cms:
  base_url: "https://blog.example.com/api"
`

func TestLoadMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", cfg.Agent.MaxIterations, DefaultMaxIterations)
	}
	if cfg.Agent.MaxContextMessages != DefaultMaxContextMessages {
		t.Errorf("MaxContextMessages = %d, want %d", cfg.Agent.MaxContextMessages, DefaultMaxContextMessages)
	}
	if cfg.Agent.RateLimitNotice == "" {
		t.Error("RateLimitNotice default missing")
	}
	if cfg.Scheduler.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %q, want %q", cfg.Scheduler.SweepInterval, DefaultSweepInterval)
	}
	if cfg.Settings.DBPath != "pressbot.db" {
		t.Errorf("DBPath = %q", cfg.Settings.DBPath)
	}
}

func TestLoadYAML(t *testing.T) {
	content := `
agent:
  max_iterations: 20
  system_prompt: "test bot"
  session_ttl: 45m
  rate_max_messages: 3
telegram:
  token: "123:abc"
  mention_only: true
llm:
  api_key: "test-key"
  model: "gpt-4o-mini"
cms:
  base_url: "https://blog.example.com/api"
  requests_per_second: 2
logger:
  level: "debug"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxIterations != 20 {
		t.Errorf("MaxIterations = %d, want 20", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.SessionTTL != "45m" {
		t.Errorf("SessionTTL = %q", cfg.Agent.SessionTTL)
	}
	if !cfg.Telegram.MentionOnly {
		t.Error("MentionOnly not parsed")
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.CMS.RequestsPerSecond != 2 {
		t.Errorf("RequestsPerSecond = %v", cfg.CMS.RequestsPerSecond)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"missing telegram token", func(c *Config) { c.Telegram.Token = "" }, "telegram.token"},
		{"missing llm key", func(c *Config) { c.LLM.APIKey = "" }, "llm.api_key"},
		{"missing cms url", func(c *Config) { c.CMS.BaseURL = "" }, "cms.base_url"},
		{"bad duration", func(c *Config) { c.Agent.SessionTTL = "yesterday" }, "session_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Telegram.Token = "123:abc"
			cfg.LLM.APIKey = "k"
			cfg.CMS.BaseURL = "https://blog.example.com"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrLoad) {
				t.Errorf("error %v not wrapped in ErrLoad", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRESSBOT_TELEGRAM_TOKEN", "999:env")
	t.Setenv("PRESSBOT_LLM_API_KEY", "env-key")
	t.Setenv("PRESSBOT_MAX_ITERATIONS", "7")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:env" {
		t.Errorf("Token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.LLM.APIKey)
	}
	if cfg.Agent.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d, want 7", cfg.Agent.MaxIterations)
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("90s", time.Minute); d != 90*time.Second {
		t.Errorf("Duration(90s) = %v", d)
	}
	if d := Duration("", time.Minute); d != time.Minute {
		t.Errorf("Duration(empty) = %v", d)
	}
	if d := Duration("bogus", time.Minute); d != time.Minute {
		t.Errorf("Duration(bogus) = %v", d)
	}
	if d := Duration("-5s", time.Minute); d != time.Minute {
		t.Errorf("Duration(negative) = %v", d)
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123456:secret-bot-token"
	cfg.LLM.APIKey = "sk-verysecretkey"
	cfg.CMS.APIKey = "abc"

	red := cfg.Redacted()
	if strings.Contains(red.Telegram.Token, "secret-bot-token") {
		t.Errorf("token not redacted: %q", red.Telegram.Token)
	}
	if strings.Contains(red.LLM.APIKey, "verysecretkey") {
		t.Errorf("api key not redacted: %q", red.LLM.APIKey)
	}
	if red.CMS.APIKey != "****" {
		t.Errorf("short secret = %q, want ****", red.CMS.APIKey)
	}
	// Original must be untouched.
	if cfg.LLM.APIKey != "sk-verysecretkey" {
		t.Error("Redacted mutated the original config")
	}
}
