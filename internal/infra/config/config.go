package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrLoad is returned for any configuration problem detected at startup.
var ErrLoad = fmt.Errorf("failed to load configuration")

// Config is the top-level application configuration.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	LLM       LLMConfig       `yaml:"llm"`
	CMS       CMSConfig       `yaml:"cms"`
	Images    ImagesConfig    `yaml:"images"`
	Settings  SettingsConfig  `yaml:"settings"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AgentConfig holds the agent loop and session bookkeeping limits.
// Duration fields are duration strings ("90s", "15m").
type AgentConfig struct {
	SystemPrompt       string `yaml:"system_prompt"`
	MaxIterations      int    `yaml:"max_iterations"`       // model calls per inbound message
	MaxContextMessages int    `yaml:"max_context_messages"` // session trims to 2x this
	MaxSessions        int    `yaml:"max_sessions"`
	SessionTTL         string `yaml:"session_ttl"`
	RateWindow         string `yaml:"rate_window"`
	RateMaxMessages    int    `yaml:"rate_max_messages"`
	ToolTimeout        string `yaml:"tool_timeout"`
	RateLimitNotice    string `yaml:"rate_limit_notice"`
}

// LLMConfig holds the LLM provider settings.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout string        `yaml:"conn_timeout"`
	RespTimeout string        `yaml:"resp_timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the LLM provider.
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"`
	Timeout     string `yaml:"timeout"`
	Interval    string `yaml:"interval"`
}

// CMSConfig holds blog-CMS REST client settings.
type CMSConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Timeout           string  `yaml:"timeout"`
}

// ImagesConfig holds image search/generation provider settings.
type ImagesConfig struct {
	SearchBaseURL string `yaml:"search_base_url"`
	GenerateModel string `yaml:"generate_model"`
}

// SettingsConfig holds the persisted settings store location.
type SettingsConfig struct {
	DBPath string `yaml:"db_path"`
}

// TelegramConfig holds the Telegram channel settings.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	MentionOnly bool   `yaml:"mention_only"`
}

// SchedulerConfig holds the cleanup scheduler settings.
// SweepInterval is a cron expression or a duration string.
type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SweepInterval string `yaml:"sweep_interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // e.g. ":9090"
}

// Default bounds applied when the config omits a value.
const (
	DefaultMaxIterations      = 10
	DefaultMaxContextMessages = 20
	DefaultMaxSessions        = 1000
	DefaultSessionTTL         = 30 * time.Minute
	DefaultRateWindow         = time.Minute
	DefaultRateMaxMessages    = 10
	DefaultToolTimeout        = 30 * time.Second
	DefaultSweepInterval      = "5m"
)

// DefaultRateLimitNotice is the user-visible reply for rate-limited messages.
const DefaultRateLimitNotice = "You're sending messages too quickly. Please wait a moment and try again."

// Load reads the YAML config at path, applies PRESSBOT_* environment
// overrides, fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables take precedence over the file,
// so secrets never need to live in YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRESSBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("PRESSBOT_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PRESSBOT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PRESSBOT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PRESSBOT_CMS_API_KEY"); v != "" {
		cfg.CMS.APIKey = v
	}
	if v := os.Getenv("PRESSBOT_CMS_BASE_URL"); v != "" {
		cfg.CMS.BaseURL = v
	}
	if v := os.Getenv("PRESSBOT_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PRESSBOT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxIterations = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = DefaultMaxIterations
	}
	if cfg.Agent.MaxContextMessages <= 0 {
		cfg.Agent.MaxContextMessages = DefaultMaxContextMessages
	}
	if cfg.Agent.MaxSessions <= 0 {
		cfg.Agent.MaxSessions = DefaultMaxSessions
	}
	if cfg.Agent.RateMaxMessages <= 0 {
		cfg.Agent.RateMaxMessages = DefaultRateMaxMessages
	}
	if cfg.Agent.RateLimitNotice == "" {
		cfg.Agent.RateLimitNotice = DefaultRateLimitNotice
	}
	if cfg.Scheduler.SweepInterval == "" {
		cfg.Scheduler.SweepInterval = DefaultSweepInterval
	}
	if cfg.Settings.DBPath == "" {
		cfg.Settings.DBPath = "pressbot.db"
	}
}

// Validate checks that required fields are present and duration strings parse.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token is required", ErrLoad)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key is required", ErrLoad)
	}
	if c.CMS.BaseURL == "" {
		return fmt.Errorf("%w: cms.base_url is required", ErrLoad)
	}
	for _, f := range []struct{ name, value string }{
		{"agent.session_ttl", c.Agent.SessionTTL},
		{"agent.rate_window", c.Agent.RateWindow},
		{"agent.tool_timeout", c.Agent.ToolTimeout},
		{"llm.conn_timeout", c.LLM.ConnTimeout},
		{"llm.resp_timeout", c.LLM.RespTimeout},
		{"llm.breaker.timeout", c.LLM.Breaker.Timeout},
		{"llm.breaker.interval", c.LLM.Breaker.Interval},
		{"cms.timeout", c.CMS.Timeout},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoad, f.name, err)
		}
	}
	return nil
}

// Duration parses s as a duration string, falling back to def when s is
// empty or invalid. Validate has already rejected malformed values from the
// config file, so the fallback only covers programmatic callers.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Redacted returns a copy of the config safe for logging: secrets replaced.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.Telegram.Token != "" {
		cp.Telegram.Token = redactSecret(cp.Telegram.Token)
	}
	if cp.LLM.APIKey != "" {
		cp.LLM.APIKey = redactSecret(cp.LLM.APIKey)
	}
	if cp.CMS.APIKey != "" {
		cp.CMS.APIKey = redactSecret(cp.CMS.APIKey)
	}
	return cp
}

func redactSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 4)
}
