package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the knowledge base tool.
type Config struct {
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// KnowledgeConfig says where articles come from and where the corpus is stored.
type KnowledgeConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	DBPath   string   `yaml:"db_path"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	JudgeCandidates int `yaml:"judge_candidates"`
	ContentPreview  int `yaml:"content_preview"`
	// MinRelevance filters candidates below this score (0 = disabled).
	MinRelevance float64       `yaml:"min_relevance"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "openai", "hash"
	Model      string        `yaml:"model"`    // e.g., "text-embedding-3-small"
	APIKeyEnv  string        `yaml:"api_key_env"`
	BaseURL    string        `yaml:"base_url"`
	Dimension  int           `yaml:"dimension"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LLMConfig configures the model that judges candidate articles.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "openai", "anthropic", "mock"
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json", "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Knowledge: KnowledgeConfig{
			Includes: []string{"**/*.json", "**/*.yaml", "**/*.yml", "**/*.md"},
			Excludes: []string{"**/.kb/**", "**/.git/**", "**/node_modules/**", "kb.yaml"},
			DBPath:   filepath.Join(".kb", "kb.db"),
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			JudgeCandidates: 3,
			ContentPreview:  500,
			MinRelevance:    0,
			CacheSize:       256,
			CacheTTL:        5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  1536,
			BatchSize:  100,
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
			Timeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.3,
			MaxTokens:   1500,
			Timeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for kb.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "kb.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".kb", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file settings with environment variables.
// USE_MOCK_DATA switches both the embedder and the judge to their offline
// implementations.
func (c *Config) ApplyEnv() {
	c.Knowledge.DBPath = getEnv("KB_DB_PATH", c.Knowledge.DBPath)

	c.Retrieve.TopK = getEnvInt("KB_TOP_K", c.Retrieve.TopK)
	c.Retrieve.JudgeCandidates = getEnvInt("KB_JUDGE_CANDIDATES", c.Retrieve.JudgeCandidates)
	c.Retrieve.MinRelevance = getEnvFloat("KB_MIN_RELEVANCE", c.Retrieve.MinRelevance)

	c.Embedding.Provider = getEnv("KB_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("KB_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = getEnv("KB_EMBEDDING_BASE_URL", c.Embedding.BaseURL)

	c.LLM.Provider = getEnv("KB_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("KB_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("KB_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Timeout = getEnvDuration("KB_LLM_TIMEOUT", c.LLM.Timeout)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("KB_LOG_FORMAT", c.Logging.Format)

	if getEnvBool("USE_MOCK_DATA", false) {
		c.Embedding.Provider = "hash"
		c.LLM.Provider = "mock"
	}
}

// Validate rejects settings the retriever cannot work with.
func (c *Config) Validate() error {
	if c.Knowledge.DBPath == "" {
		return fmt.Errorf("knowledge.db_path is required")
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be at least 1, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.JudgeCandidates < 1 {
		return fmt.Errorf("retrieve.judge_candidates must be at least 1, got %d", c.Retrieve.JudgeCandidates)
	}
	if c.Retrieve.ContentPreview < 1 {
		return fmt.Errorf("retrieve.content_preview must be positive, got %d", c.Retrieve.ContentPreview)
	}
	if c.Retrieve.MinRelevance < 0 || c.Retrieve.MinRelevance > 1 {
		return fmt.Errorf("retrieve.min_relevance must be within [0, 1], got %g", c.Retrieve.MinRelevance)
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider openai")
		}
	case "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.MaxRetries < 0 || c.Embedding.MaxRetries > 10 {
		return fmt.Errorf("embedding.max_retries must be 0-10, got %d", c.Embedding.MaxRetries)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	return nil
}

// DBPath resolves the corpus database path against dir.
func (c *Config) DBPath(dir string) string {
	if filepath.IsAbs(c.Knowledge.DBPath) {
		return c.Knowledge.DBPath
	}
	return filepath.Join(dir, c.Knowledge.DBPath)
}

// EnsureDBDir creates the directory holding the corpus database.
func EnsureDBDir(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), 0755)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
