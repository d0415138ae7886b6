package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"TrendingDigest/internal/domain"
)

const (
	ConfigPathEnv = "TRENDING_DIGEST_CONFIG"

	llmAPIKeyEnv        = "LLM_API_KEY"
	llmProviderEnv      = "LLM_PROVIDER"
	llmModelEnv         = "LLM_MODEL"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
	openRouterAPIKeyEnv = "OPENROUTER_API_KEY"
	openAIAPIKeyEnv     = "OPENAI_API_KEY"
	historyDSNEnv       = "HISTORY_DSN"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	logLevelEnv         = "LOG_LEVEL"
)

// Supported generative-text providers.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Config holds every setting of a run. It is built once at process start and
// passed by value into constructors.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Source        SourceConfig       `yaml:"source"`
	LLM           LLMConfig          `yaml:"llm"`
	Proxy         ProxyConfig        `yaml:"proxy"`
	Document      DocumentConfig     `yaml:"document"`
	Publish       PublishConfig      `yaml:"publish"`
	History       HistoryConfig      `yaml:"history"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes the ranked listing to scan.
type SourceConfig struct {
	Scanner     string        `yaml:"scanner"`
	URL         string        `yaml:"url"`
	MaxProjects int           `yaml:"maxProjects"`
	UserAgent   string        `yaml:"userAgent"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LLMConfig defines how to contact the generative-text service.
type LLMConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"apiKey"`
	APIVersion string        `yaml:"apiVersion"`
	Endpoint   string        `yaml:"endpoint"`
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ProxyConfig is the optional local proxy pair. It is cleared inside CI.
type ProxyConfig struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Enabled reports whether any proxy is configured.
func (p ProxyConfig) Enabled() bool {
	return p.HTTP != "" || p.HTTPS != ""
}

// DocumentConfig points at the persisted page and its anchor element.
type DocumentConfig struct {
	Path     string `yaml:"path"`
	AnchorID string `yaml:"anchorId"`
}

// PublishConfig controls the git stage/commit/push step.
type PublishConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	CommitMessage string `yaml:"commitMessage"`
	WorkDir       string `yaml:"workDir"`
}

// IsEnabled defaults to true when unset.
func (p PublishConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// HistoryConfig describes the optional Postgres run archive.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration from path (if non-empty) and applies
// environment overrides looked up through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidConfig, path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides(getenv)
	if inCI(getenv) {
		cfg.Proxy = ProxyConfig{}
	}

	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenRouter, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrClientInit, c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: missing api key for provider %s (set %s)", domain.ErrClientInit, c.LLM.Provider, apiKeyEnvFor(c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm model is empty", domain.ErrClientInit)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive, got %s", domain.ErrInvalidConfig, c.LLM.Timeout)
	}
	if c.Source.MaxProjects <= 0 {
		return fmt.Errorf("%w: source.maxProjects must be positive, got %d", domain.ErrInvalidConfig, c.Source.MaxProjects)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("%w: source.url is empty", domain.ErrInvalidConfig)
	}
	if c.Document.Path == "" || c.Document.AnchorID == "" {
		return fmt.Errorf("%w: document path and anchorId are required", domain.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if v := getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := getenv(apiKeyEnvFor(c.LLM.Provider)); v != "" {
		c.LLM.APIKey = v
	}
	if v := getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := firstNonEmpty(getenv("HTTP_PROXY"), getenv("http_proxy")); v != "" {
		c.Proxy.HTTP = v
	}
	if v := firstNonEmpty(getenv("HTTPS_PROXY"), getenv("https_proxy")); v != "" {
		c.Proxy.HTTPS = v
	}

	if v := getenv(historyDSNEnv); v != "" {
		c.History.DSN = v
	}

	if v := getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func apiKeyEnvFor(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return openRouterAPIKeyEnv
	case ProviderOpenAI:
		return openAIAPIKeyEnv
	default:
		return geminiAPIKeyEnv
	}
}

func inCI(getenv func(string) string) bool {
	return getenv("GITHUB_ACTIONS") == "true" || getenv("CI") == "true"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Source.Scanner != "" {
		base.Source.Scanner = override.Source.Scanner
	}
	if override.Source.URL != "" {
		base.Source.URL = override.Source.URL
	}
	if override.Source.MaxProjects != 0 {
		base.Source.MaxProjects = override.Source.MaxProjects
	}
	if override.Source.UserAgent != "" {
		base.Source.UserAgent = override.Source.UserAgent
	}
	if override.Source.Timeout != 0 {
		base.Source.Timeout = override.Source.Timeout
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = strings.ToLower(override.LLM.Provider)
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.APIVersion != "" {
		base.LLM.APIVersion = override.LLM.APIVersion
	}
	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.BaseURL != "" {
		base.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Timeout != 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Proxy.Enabled() {
		base.Proxy = override.Proxy
	}

	if override.Document.Path != "" {
		base.Document.Path = override.Document.Path
	}
	if override.Document.AnchorID != "" {
		base.Document.AnchorID = override.Document.AnchorID
	}

	if override.Publish.Enabled != nil {
		base.Publish.Enabled = override.Publish.Enabled
	}
	if override.Publish.CommitMessage != "" {
		base.Publish.CommitMessage = override.Publish.CommitMessage
	}
	if override.Publish.WorkDir != "" {
		base.Publish.WorkDir = override.Publish.WorkDir
	}

	if override.History.DSN != "" {
		base.History.DSN = override.History.DSN
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			Scanner:     "github-trending",
			URL:         "https://github.com/trending/python?since=daily",
			MaxProjects: 4,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			Timeout:     20 * time.Second,
		},
		LLM: LLMConfig{
			Provider:   ProviderGemini,
			Model:      "gemma-3-27b-it",
			APIVersion: "v1beta",
			Endpoint:   "https://api.openai.com/v1/chat/completions",
			Timeout:    60 * time.Second,
		},
		Document: DocumentConfig{Path: "index.html", AnchorID: "content-grid"},
		Publish:  PublishConfig{CommitMessage: "Auto Update", WorkDir: "."},
	}
}
