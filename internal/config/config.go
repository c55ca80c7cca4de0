// Package config provides configuration management for the research assistant.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research assistant.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains LLM client settings for summary generation.
	LLM LLMConfig `mapstructure:"llm"`
	// Sources contains external data-source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Pipeline contains research pipeline settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Qdrant contains vector store settings for conversation memory.
	Qdrant QdrantConfig `mapstructure:"qdrant"`
	// Notification contains outbound notification settings.
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the metric name prefix.
	Namespace string `mapstructure:"namespace"`
}

// LLMConfig holds LLM client configuration.
type LLMConfig struct {
	// Provider selects the summarizer backend ("openai" or "anthropic").
	Provider string `mapstructure:"provider"`
	// Temperature is the sampling temperature for generation.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps the generated summary length.
	MaxTokens int `mapstructure:"max_tokens"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// BreakerEnabled wraps the summarizer in a circuit breaker.
	BreakerEnabled bool `mapstructure:"breaker_enabled"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	// EmbeddingModel is the OpenAI embedding model for memory vectors.
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from PHARMALENS_LLM_OPENAI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the OpenAI model name.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI API base URL.
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (loaded from PHARMALENS_LLM_ANTHROPIC_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the Anthropic model name.
	Model string `mapstructure:"model"`
	// BaseURL is the Anthropic API base URL.
	BaseURL string `mapstructure:"base_url"`
}

// SourcesConfig holds configuration for all external data-source APIs.
type SourcesConfig struct {
	// PubMed contains PubMed E-utilities settings.
	PubMed SourceConfig `mapstructure:"pubmed"`
	// EuropePMC contains Europe PMC REST settings.
	EuropePMC SourceConfig `mapstructure:"europepmc"`
	// ClinicalTrials contains ClinicalTrials.gov settings.
	ClinicalTrials SourceConfig `mapstructure:"clinicaltrials"`
}

// SourceConfig holds configuration for a single data-source API.
type SourceConfig struct {
	// APIKey is an optional API key. Only PubMed uses one (loaded from
	// PHARMALENS_SOURCES_PUBMED_API_KEY env var, raises NCBI rate limits).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
}

// PipelineConfig holds research pipeline settings.
type PipelineConfig struct {
	// LookbackDays restricts literature to the trailing N days.
	LookbackDays int `mapstructure:"lookback_days"`
	// TrialWindowDays is the trailing window for trial first-posted dates.
	TrialWindowDays int `mapstructure:"trial_window_days"`
	// FetchTimeout bounds each individual source fetch.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// BackgroundTimeout bounds fire-and-forget memory and notification work.
	BackgroundTimeout time.Duration `mapstructure:"background_timeout"`
	// ArtifactPath is the local file the summary is written to. Empty disables it.
	ArtifactPath string `mapstructure:"artifact_path"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Enabled controls whether conversation memory is active.
	Enabled bool `mapstructure:"enabled"`
	// Address is the Qdrant gRPC address.
	Address string `mapstructure:"address"`
	// CollectionName is the name of the collection for conversation memory.
	CollectionName string `mapstructure:"collection_name"`
	// VectorSize is the embedding dimension (must match the embedding model).
	VectorSize uint64 `mapstructure:"vector_size"`
}

// NotificationConfig holds outbound notification settings.
type NotificationConfig struct {
	// Channel selects the notifier ("slack", "gmail", or "disabled").
	Channel string `mapstructure:"channel"`
	// Timeout is the timeout for notification API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// Slack contains Slack-specific settings.
	Slack SlackConfig `mapstructure:"slack"`
	// Gmail contains Gmail-specific settings.
	Gmail GmailConfig `mapstructure:"gmail"`
}

// SlackConfig holds Slack direct-message settings.
type SlackConfig struct {
	// BotToken is the Slack bot token (loaded from PHARMALENS_NOTIFICATION_SLACK_BOT_TOKEN env var).
	BotToken string `mapstructure:"-"`
	// UserID is the Slack user who receives the direct message.
	UserID string `mapstructure:"user_id"`
}

// GmailConfig holds Gmail draft settings.
type GmailConfig struct {
	// AccessToken is the OAuth2 bearer token (loaded from PHARMALENS_NOTIFICATION_GMAIL_ACCESS_TOKEN env var).
	AccessToken string `mapstructure:"-"`
	// Recipient is the draft's To address.
	Recipient string `mapstructure:"recipient"`
	// Subject overrides the default subject line.
	Subject string `mapstructure:"subject"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PHARMALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.LLM.OpenAI.APIKey = os.Getenv("PHARMALENS_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("PHARMALENS_LLM_ANTHROPIC_API_KEY")

	cfg.Notification.Slack.BotToken = os.Getenv("PHARMALENS_NOTIFICATION_SLACK_BOT_TOKEN")
	cfg.Notification.Gmail.AccessToken = os.Getenv("PHARMALENS_NOTIFICATION_GMAIL_ACCESS_TOKEN")

	cfg.Sources.PubMed.APIKey = os.Getenv("PHARMALENS_SOURCES_PUBMED_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research_assistant")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.breaker_enabled", true)
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Source defaults - PubMed
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("sources.pubmed.max_results", 200)

	// Source defaults - Europe PMC
	v.SetDefault("sources.europepmc.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.europepmc.timeout", "30s")
	v.SetDefault("sources.europepmc.rate_limit", 5.0)
	v.SetDefault("sources.europepmc.max_results", 200)

	// Source defaults - ClinicalTrials.gov
	v.SetDefault("sources.clinicaltrials.base_url", "https://clinicaltrials.gov/api/v2")
	v.SetDefault("sources.clinicaltrials.timeout", "30s")
	v.SetDefault("sources.clinicaltrials.rate_limit", 5.0)
	v.SetDefault("sources.clinicaltrials.max_results", 100)

	// Pipeline defaults
	v.SetDefault("pipeline.lookback_days", 30)
	v.SetDefault("pipeline.trial_window_days", 730)
	v.SetDefault("pipeline.fetch_timeout", "30s")
	v.SetDefault("pipeline.background_timeout", "30s")
	v.SetDefault("pipeline.artifact_path", "summary.txt")

	// Qdrant defaults
	v.SetDefault("qdrant.enabled", true)
	v.SetDefault("qdrant.address", "localhost:6334")
	v.SetDefault("qdrant.collection_name", "conversation_memory")
	v.SetDefault("qdrant.vector_size", 1536) // text-embedding-3-small

	// Notification defaults
	v.SetDefault("notification.channel", "disabled")
	v.SetDefault("notification.timeout", "15s")
	v.SetDefault("notification.slack.user_id", "")
	v.SetDefault("notification.gmail.recipient", "")
	v.SetDefault("notification.gmail.subject", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM max_tokens must be positive")
	}

	// Validate that the configured LLM provider has its required API key set.
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires PHARMALENS_LLM_OPENAI_API_KEY to be set", c.LLM.Provider)
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires PHARMALENS_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	// Memory embeddings always go through the OpenAI embeddings API, so
	// the key is required whenever the vector store is enabled.
	if c.Qdrant.Enabled {
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("conversation memory requires PHARMALENS_LLM_OPENAI_API_KEY to be set")
		}
		if c.Qdrant.Address == "" {
			return fmt.Errorf("qdrant address is required when memory is enabled")
		}
		if c.Qdrant.CollectionName == "" {
			return fmt.Errorf("qdrant collection name is required when memory is enabled")
		}
		if c.Qdrant.VectorSize == 0 {
			return fmt.Errorf("qdrant vector size must be > 0")
		}
	}

	switch strings.ToLower(c.Notification.Channel) {
	case "slack":
		if c.Notification.Slack.BotToken == "" {
			return fmt.Errorf("slack notifications require PHARMALENS_NOTIFICATION_SLACK_BOT_TOKEN to be set")
		}
		if c.Notification.Slack.UserID == "" {
			return fmt.Errorf("slack notifications require notification.slack.user_id to be set")
		}
	case "gmail":
		if c.Notification.Gmail.AccessToken == "" {
			return fmt.Errorf("gmail notifications require PHARMALENS_NOTIFICATION_GMAIL_ACCESS_TOKEN to be set")
		}
	case "disabled", "":
		// Notifications off.
	default:
		return fmt.Errorf("unsupported notification channel: %q", c.Notification.Channel)
	}

	if c.Pipeline.LookbackDays <= 0 {
		return fmt.Errorf("pipeline lookback_days must be positive")
	}
	if c.Pipeline.TrialWindowDays <= 0 {
		return fmt.Errorf("pipeline trial_window_days must be positive")
	}

	return nil
}
