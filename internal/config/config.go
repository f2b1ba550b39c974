package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/leadradar/internal/ai"
	"github.com/amishk599/leadradar/internal/model"
)

// Config is the root configuration for leadradar.
type Config struct {
	PollingInterval time.Duration
	Roles           []model.RoleConfig
	Filters         FilterConfig
	Source          SourceConfig
	AI              AIConfig
	Store           StoreConfig
	Pipeline        PipelineConfig
	Notification    NotificationConfig
}

// FilterConfig holds the keyword pre-filter applied before classification.
type FilterConfig struct {
	Include []string
	Exclude []string
}

// SourceConfig controls the Reddit signal source.
type SourceConfig struct {
	BaseURL    string
	UserAgent  string
	Limit      int           // results per query, at most model.MaxSignalsPerFetch
	Timeout    time.Duration // per fetch
	MinDelay   time.Duration // minimum gap between two fetches
	MaxRetries int
}

// AIConfig selects and tunes the classifier.
type AIConfig struct {
	Provider          string // "openai", "anthropic" or "gemini"
	BaseURL           string
	Model             string
	APIKey            string        // expanded from env var by Load
	Timeout           time.Duration // per classifier call
	RequestsPerSecond float64       // 0 means unlimited
	Burst             int
	MaxRetries        int
}

// StoreConfig selects the history store.
type StoreConfig struct {
	Driver    string // "sqlite", "postgres" or "firestore"
	Path      string // sqlite
	DSN       string // postgres
	ProjectID string // firestore
}

// PipelineConfig controls how roles are run.
type PipelineConfig struct {
	Mode        string // "batch" or "stream"
	Concurrency int    // roles run at once
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "none"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	defaultPollingInterval   = time.Hour
	defaultRedditBaseURL     = "https://www.reddit.com"
	defaultUserAgent         = "leadradar/1.0 (hiring signal monitor)"
	defaultRelevanceCutoff   = 0.7
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultAnthropicModel    = "claude-3-5-haiku-latest"
	defaultGeminiModel       = "gemini-1.5-flash"
	defaultSQLitePath        = "leads.db"
	slackWebhookPrefix       = "https://hooks.slack.com/"
	defaultMaxRetries        = 2
	defaultSourceTimeout     = 15 * time.Second
	defaultClassifierTimeout = 30 * time.Second
	defaultSourceMinDelay    = 2 * time.Second
)

// DefaultRoles mirrors the three roles the pipeline was first built for.
func DefaultRoles() []model.RoleConfig {
	return []model.RoleConfig{
		{
			Role:               "fractional_cto",
			SearchQuery:        "businesses hiring fractional CTO",
			CollectionName:     "leads_fractional_cto",
			RelevanceThreshold: defaultRelevanceCutoff,
		},
		{
			Role:               "part_time_software_engineer",
			SearchQuery:        "businesses hiring part time software engineers",
			CollectionName:     "leads_part_time_software_engineer",
			RelevanceThreshold: defaultRelevanceCutoff,
		},
		{
			Role:               "part_time_data_engineer",
			SearchQuery:        "businesses hiring part time data engineers analytics big data",
			CollectionName:     "leads_part_time_data_engineer",
			RelevanceThreshold: defaultRelevanceCutoff,
		},
	}
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollingInterval string             `yaml:"polling_interval"`
	Roles           []rawRole          `yaml:"roles"`
	Filters         rawFilterConfig    `yaml:"filters"`
	Source          rawSourceConfig    `yaml:"source"`
	AI              rawAIConfig        `yaml:"ai"`
	Store           rawStoreConfig     `yaml:"store"`
	Pipeline        rawPipelineConfig  `yaml:"pipeline"`
	Notification    NotificationConfig `yaml:"notification"`
}

type rawRole struct {
	Role                    string   `yaml:"role"`
	SearchQuery             string   `yaml:"search_query"`
	RelevancePromptTemplate string   `yaml:"relevance_prompt_template"`
	NoveltyPromptTemplate   string   `yaml:"novelty_prompt_template"`
	CollectionName          string   `yaml:"collection_name"`
	RelevanceThreshold      *float64 `yaml:"relevance_threshold"`
}

type rawFilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type rawSourceConfig struct {
	BaseURL    string `yaml:"base_url"`
	UserAgent  string `yaml:"user_agent"`
	Limit      int    `yaml:"limit"`
	Timeout    string `yaml:"timeout"`
	MinDelay   string `yaml:"min_delay"`
	MaxRetries *int   `yaml:"max_retries"`
}

type rawAIConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        *int    `yaml:"max_retries"`
}

type rawStoreConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	ProjectID string `yaml:"project_id"`
}

type rawPipelineConfig struct {
	Mode        string `yaml:"mode"`
	Concurrency int    `yaml:"concurrency"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	interval, err := parseDuration("polling_interval", raw.PollingInterval, defaultPollingInterval)
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("source.timeout", raw.Source.Timeout, defaultSourceTimeout)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("source.min_delay", raw.Source.MinDelay, defaultSourceMinDelay)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := parseDuration("ai.timeout", raw.AI.Timeout, defaultClassifierTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PollingInterval: interval,
		Roles:           buildRoles(raw.Roles),
		Filters: FilterConfig{
			Include: raw.Filters.Include,
			Exclude: raw.Filters.Exclude,
		},
		Source: SourceConfig{
			BaseURL:    withDefault(strings.TrimRight(raw.Source.BaseURL, "/"), defaultRedditBaseURL),
			UserAgent:  withDefault(raw.Source.UserAgent, defaultUserAgent),
			Limit:      raw.Source.Limit,
			Timeout:    sourceTimeout,
			MinDelay:   minDelay,
			MaxRetries: intOr(raw.Source.MaxRetries, defaultMaxRetries),
		},
		AI: AIConfig{
			Provider:          withDefault(strings.ToLower(raw.AI.Provider), "openai"),
			BaseURL:           strings.TrimRight(raw.AI.BaseURL, "/"),
			Model:             raw.AI.Model,
			APIKey:            raw.AI.APIKey,
			Timeout:           aiTimeout,
			RequestsPerSecond: raw.AI.RequestsPerSecond,
			Burst:             raw.AI.Burst,
			MaxRetries:        intOr(raw.AI.MaxRetries, defaultMaxRetries),
		},
		Store: StoreConfig{
			Driver:    withDefault(strings.ToLower(raw.Store.Driver), "sqlite"),
			Path:      withDefault(raw.Store.Path, defaultSQLitePath),
			DSN:       raw.Store.DSN,
			ProjectID: raw.Store.ProjectID,
		},
		Pipeline: PipelineConfig{
			Mode:        withDefault(strings.ToLower(raw.Pipeline.Mode), "batch"),
			Concurrency: raw.Pipeline.Concurrency,
		},
		Notification: raw.Notification,
	}

	if cfg.Source.Limit == 0 {
		cfg.Source.Limit = model.MaxSignalsPerFetch
	}
	if cfg.AI.Burst == 0 {
		cfg.AI.Burst = 1
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 1
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	applyAIDefaults(&cfg.AI)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildRoles(raw []rawRole) []model.RoleConfig {
	if len(raw) == 0 {
		return DefaultRoles()
	}
	roles := make([]model.RoleConfig, 0, len(raw))
	for _, r := range raw {
		rc := model.RoleConfig{
			Role:                    r.Role,
			SearchQuery:             r.SearchQuery,
			RelevancePromptTemplate: r.RelevancePromptTemplate,
			NoveltyPromptTemplate:   r.NoveltyPromptTemplate,
			CollectionName:          withDefault(r.CollectionName, "leads_"+r.Role),
			RelevanceThreshold:      defaultRelevanceCutoff,
		}
		if r.RelevanceThreshold != nil {
			rc.RelevanceThreshold = *r.RelevanceThreshold
		}
		roles = append(roles, rc)
	}
	return roles
}

func applyAIDefaults(c *AIConfig) {
	switch c.Provider {
	case "openai":
		c.BaseURL = withDefault(c.BaseURL, defaultOpenAIBaseURL)
		c.Model = withDefault(c.Model, defaultOpenAIModel)
	case "anthropic":
		c.Model = withDefault(c.Model, defaultAnthropicModel)
	case "gemini":
		c.Model = withDefault(c.Model, defaultGeminiModel)
	}
}

func validate(cfg *Config) error {
	if cfg.PollingInterval <= 0 {
		return fmt.Errorf("polling_interval must be positive, got %v", cfg.PollingInterval)
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Roles {
		if r.Role == "" {
			return fmt.Errorf("roles[%d].role is required", i)
		}
		if seen[r.Role] {
			return fmt.Errorf("roles[%d]: duplicate role %q", i, r.Role)
		}
		seen[r.Role] = true
		if r.SearchQuery == "" {
			return fmt.Errorf("roles[%d].search_query is required", i)
		}
		if r.RelevanceThreshold < 0 || r.RelevanceThreshold >= 1 {
			return fmt.Errorf("roles[%d].relevance_threshold must be in [0, 1), got %v", i, r.RelevanceThreshold)
		}
		if r.RelevancePromptTemplate != "" {
			if _, err := ai.ParsePrompt(r.Role+" relevance", r.RelevancePromptTemplate); err != nil {
				return fmt.Errorf("roles[%d]: %w", i, err)
			}
		}
		if r.NoveltyPromptTemplate != "" {
			if _, err := ai.ParsePrompt(r.Role+" novelty", r.NoveltyPromptTemplate); err != nil {
				return fmt.Errorf("roles[%d]: %w", i, err)
			}
		}
	}

	if cfg.Source.Limit < 1 || cfg.Source.Limit > model.MaxSignalsPerFetch {
		return fmt.Errorf("source.limit must be between 1 and %d, got %d", model.MaxSignalsPerFetch, cfg.Source.Limit)
	}

	switch cfg.AI.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("ai.provider must be openai, anthropic or gemini, got %q", cfg.AI.Provider)
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if cfg.AI.RequestsPerSecond < 0 {
		return fmt.Errorf("ai.requests_per_second must not be negative")
	}

	switch cfg.Store.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when driver is \"postgres\"")
		}
	case "firestore":
		if cfg.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id is required when driver is \"firestore\"")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or firestore, got %q", cfg.Store.Driver)
	}

	if cfg.Pipeline.Mode != "batch" && cfg.Pipeline.Mode != "stream" {
		return fmt.Errorf("pipeline.mode must be batch or stream, got %q", cfg.Pipeline.Mode)
	}
	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1, got %d", cfg.Pipeline.Concurrency)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or none, got %q", cfg.Notification.Type)
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
