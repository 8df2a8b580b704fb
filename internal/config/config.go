// Package config loads docky settings from defaults, an optional YAML file
// and DOCKY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcliao/docky/internal/memory"
)

// ErrInvalidConfiguration is returned by Validate.
var ErrInvalidConfiguration = memory.ErrInvalidConfiguration

// Config is the full application configuration.
type Config struct {
	DBPath    string          `mapstructure:"db_path"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Memory    MemoryConfig    `mapstructure:"memory"`
}

// LogConfig selects the zap configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// ProviderConfig names one generation backend.
type ProviderConfig struct {
	Provider string `mapstructure:"provider"` // openai, openrouter, local, anthropic
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// LLMConfig configures answer and summary generation.
type LLMConfig struct {
	ProviderConfig `mapstructure:",squash"`
	Fallback       []ProviderConfig `mapstructure:"fallback"`
	MaxTokens      int              `mapstructure:"max_tokens"`
	Temperature    float64          `mapstructure:"temperature"`
	Breaker        BreakerConfig    `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around generation.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// EmbeddingConfig selects the embedder. An empty provider disables vector
// search and retrieval falls back to keyword ranking.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // "", ollama, openai
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
}

// DocumentsConfig controls chunking.
type DocumentsConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// RetrievalConfig controls passage retrieval.
type RetrievalConfig struct {
	K int `mapstructure:"k"`
}

// MemoryConfig controls conversation memory.
type MemoryConfig struct {
	TokenBudget        int           `mapstructure:"token_budget"`
	MaxRecentExchanges int           `mapstructure:"max_recent_exchanges"`
	AnswerPreview      int           `mapstructure:"answer_preview"`
	SummaryTimeout     time.Duration `mapstructure:"summary_timeout"`
	Tokenizer          string        `mapstructure:"tokenizer"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DBPath: defaultDBPath(),
		Log:    LogConfig{Level: "info", Format: "console"},
		LLM: LLMConfig{
			ProviderConfig: ProviderConfig{Provider: "openai"},
			MaxTokens:      1024,
			Temperature:    0.1,
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 0.5,
				MinRequests:      3,
			},
		},
		Documents: DocumentsConfig{ChunkSize: 2000, ChunkOverlap: 400},
		Retrieval: RetrievalConfig{K: 6},
		Memory: MemoryConfig{
			TokenBudget:        500,
			MaxRecentExchanges: 3,
			AnswerPreview:      150,
			SummaryTimeout:     memory.DefaultSummaryTimeout,
			Tokenizer:          "cl100k_base",
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docky.db"
	}
	return filepath.Join(home, ".docky", "docky.db")
}

// Load reads configuration. With an empty path it looks for docky.yaml in the
// working directory and ~/.config/docky, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docky")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "docky"))
		}
	}

	v.SetEnvPrefix("DOCKY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyKeyEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.breaker.enabled", d.LLM.Breaker.Enabled)
	v.SetDefault("llm.breaker.max_requests", d.LLM.Breaker.MaxRequests)
	v.SetDefault("llm.breaker.interval", d.LLM.Breaker.Interval)
	v.SetDefault("llm.breaker.timeout", d.LLM.Breaker.Timeout)
	v.SetDefault("llm.breaker.failure_threshold", d.LLM.Breaker.FailureThreshold)
	v.SetDefault("llm.breaker.min_requests", d.LLM.Breaker.MinRequests)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	v.SetDefault("documents.chunk_size", d.Documents.ChunkSize)
	v.SetDefault("documents.chunk_overlap", d.Documents.ChunkOverlap)
	v.SetDefault("retrieval.k", d.Retrieval.K)

	v.SetDefault("memory.token_budget", d.Memory.TokenBudget)
	v.SetDefault("memory.max_recent_exchanges", d.Memory.MaxRecentExchanges)
	v.SetDefault("memory.answer_preview", d.Memory.AnswerPreview)
	v.SetDefault("memory.summary_timeout", d.Memory.SummaryTimeout)
	v.SetDefault("memory.tokenizer", d.Memory.Tokenizer)
}

// applyKeyEnv fills empty API keys from the providers' conventional variables.
func applyKeyEnv(cfg *Config) {
	cfg.LLM.APIKey = keyFor(cfg.LLM.Provider, cfg.LLM.APIKey)
	for i := range cfg.LLM.Fallback {
		cfg.LLM.Fallback[i].APIKey = keyFor(cfg.LLM.Fallback[i].Provider, cfg.LLM.Fallback[i].APIKey)
	}
	if cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = keyFor("openai", cfg.Embedding.APIKey)
	}
}

func keyFor(provider, key string) string {
	if key != "" {
		return key
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfiguration)
	}
	if c.Documents.ChunkSize <= 0 {
		return fmt.Errorf("%w: documents.chunk_size must be positive", ErrInvalidConfiguration)
	}
	if c.Documents.ChunkOverlap < 0 || c.Documents.ChunkOverlap >= c.Documents.ChunkSize {
		return fmt.Errorf("%w: documents.chunk_overlap must be in [0, chunk_size)", ErrInvalidConfiguration)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("%w: retrieval.k must be positive", ErrInvalidConfiguration)
	}
	if c.Memory.SummaryTimeout < 0 {
		return fmt.Errorf("%w: memory.summary_timeout must not be negative", ErrInvalidConfiguration)
	}
	switch c.Embedding.Provider {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfiguration, c.Embedding.Provider)
	}
	return c.MemoryConfig().Validate()
}

// MemoryConfig returns the conversation memory bounds.
func (c *Config) MemoryConfig() memory.Config {
	return memory.Config{
		TokenBudget:        c.Memory.TokenBudget,
		MaxRecentExchanges: c.Memory.MaxRecentExchanges,
		AnswerPreview:      c.Memory.AnswerPreview,
	}
}
