package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete claimcheck configuration
type Config struct {
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`             // Extraction model (decompose, synthesize, plan)
	AgentLLM LLMConfig      `yaml:"agent_llm" mapstructure:"agent_llm"` // Tool-calling model for evidence gathering
	Workflow WorkflowConfig `yaml:"workflow" mapstructure:"workflow"`
	Tools    ToolsConfig    `yaml:"tools" mapstructure:"tools"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Handoff  HandoffConfig  `yaml:"handoff" mapstructure:"handoff"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

// LLMConfig selects and configures a language model provider
type LLMConfig struct {
	Provider  string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string  `yaml:"model" mapstructure:"model"`
	APIKey    string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temp      float32 `yaml:"temperature" mapstructure:"temperature"`
}

// WorkflowConfig bounds the verification and planning workflow
type WorkflowConfig struct {
	MaxSubClaims       int           `yaml:"max_sub_claims" mapstructure:"max_sub_claims"`
	BranchWorkers      int           `yaml:"branch_workers" mapstructure:"branch_workers"`
	BranchTimeout      time.Duration `yaml:"branch_timeout" mapstructure:"branch_timeout"`
	MaxAgentIterations int           `yaml:"max_agent_iterations" mapstructure:"max_agent_iterations"`
	MaxToolCalls       int           `yaml:"max_tool_calls" mapstructure:"max_tool_calls"`
	TimeBudgetMinutes  int           `yaml:"time_budget_minutes" mapstructure:"time_budget_minutes"`
	MaterialsMode      string        `yaml:"materials_mode" mapstructure:"materials_mode"` // "llm" or "heuristic"

	// SourceDomains maps a domain to a source type (government, academic,
	// news, reference, internal) for evidence coverage
	SourceDomains map[string]string `yaml:"source_domains,omitempty" mapstructure:"source_domains"`
}

// ToolsConfig configures the lookup tools offered to the agent
type ToolsConfig struct {
	Enabled           []string `yaml:"enabled" mapstructure:"enabled"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds    int      `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Retries           int      `yaml:"retries" mapstructure:"retries"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int      `yaml:"burst_size" mapstructure:"burst_size"`
	MaxOutputBytes    int      `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
	WikipediaURL      string   `yaml:"wikipedia_url" mapstructure:"wikipedia_url"`
	RAGURL            string   `yaml:"rag_url,omitempty" mapstructure:"rag_url"`
	NewsAPIKey        string   `yaml:"news_api_key,omitempty" mapstructure:"news_api_key"`
	NewsURL           string   `yaml:"news_url" mapstructure:"news_url"`
	RespectRobots     bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig configures the tool result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig configures verdict persistence. An empty driver disables it.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite3, ""
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// HandoffConfig configures the content-generation collaborator. An empty kind disables it.
type HandoffConfig struct {
	Kind           string `yaml:"kind" mapstructure:"kind"` // http, redis, ""
	URL            string `yaml:"url,omitempty" mapstructure:"url"`
	RedisAddr      string `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	Stream         string `yaml:"stream" mapstructure:"stream"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "llama3.2:3b",
			Timeout:   60,
			MaxTokens: 2000,
		},
		AgentLLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Workflow: WorkflowConfig{
			MaxSubClaims:       5,
			BranchWorkers:      4,
			BranchTimeout:      3 * time.Minute,
			MaxAgentIterations: 8,
			MaxToolCalls:       7,
			TimeBudgetMinutes:  120,
			MaterialsMode:      "llm",
		},
		Tools: ToolsConfig{
			Enabled:           []string{"wikipedia_search", "wikipedia_summary", "wikipedia_edit_activity", "web_page"},
			UserAgent:         "claimcheck/0.1 (+https://github.com/ppiankov/claimcheck)",
			TimeoutSeconds:    15,
			Retries:           2,
			RequestsPerSecond: 2,
			BurstSize:         5,
			MaxOutputBytes:    8000,
			WikipediaURL:      "https://en.wikipedia.org",
			NewsURL:           "https://newsapi.org",
			RespectRobots:     true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".claimcheck-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{},
		Handoff: HandoffConfig{
			Stream:         "claimcheck:generation",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigError reports an invalid or missing configuration value
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration for values that would make a run fail
func (c *Config) Validate() error {
	var errs []error

	for name, llm := range map[string]LLMConfig{"llm": c.LLM, "agent_llm": c.AgentLLM} {
		switch strings.ToLower(llm.Provider) {
		case "openai", "anthropic", "claude", "ollama":
		case "":
			errs = append(errs, &ConfigError{Field: name + ".provider", Reason: "is required"})
		default:
			errs = append(errs, &ConfigError{Field: name + ".provider", Reason: fmt.Sprintf("unknown provider %q", llm.Provider)})
		}
	}
	if p := strings.ToLower(c.AgentLLM.Provider); p == "anthropic" || p == "claude" {
		errs = append(errs, &ConfigError{Field: "agent_llm.provider", Reason: "tool calling requires openai or ollama"})
	}
	if c.Workflow.TimeBudgetMinutes < 0 {
		errs = append(errs, &ConfigError{Field: "workflow.time_budget_minutes", Reason: "must not be negative"})
	}
	if c.Workflow.MaxAgentIterations <= 0 {
		errs = append(errs, &ConfigError{Field: "workflow.max_agent_iterations", Reason: "must be positive"})
	}
	switch c.Workflow.MaterialsMode {
	case "", "llm", "heuristic":
	default:
		errs = append(errs, &ConfigError{Field: "workflow.materials_mode", Reason: "must be llm or heuristic"})
	}
	if len(c.Tools.Enabled) == 0 {
		errs = append(errs, &ConfigError{Field: "tools.enabled", Reason: "at least one tool is required"})
	}
	switch c.Store.Driver {
	case "":
	case "postgres", "sqlite3":
		if c.Store.DSN == "" {
			errs = append(errs, &ConfigError{Field: "store.dsn", Reason: "is required when a driver is set"})
		}
	default:
		errs = append(errs, &ConfigError{Field: "store.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Store.Driver)})
	}
	switch c.Handoff.Kind {
	case "":
	case "http":
		if c.Handoff.URL == "" {
			errs = append(errs, &ConfigError{Field: "handoff.url", Reason: "is required for http handoff"})
		}
	case "redis":
		if c.Handoff.RedisAddr == "" {
			errs = append(errs, &ConfigError{Field: "handoff.redis_addr", Reason: "is required for redis handoff"})
		}
	default:
		errs = append(errs, &ConfigError{Field: "handoff.kind", Reason: fmt.Sprintf("unsupported kind %q", c.Handoff.Kind)})
	}

	return errors.Join(errs...)
}
