package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.JudgeCandidates != 3 {
		t.Errorf("expected JudgeCandidates=3, got %d", cfg.Retrieve.JudgeCandidates)
	}
	if cfg.Retrieve.ContentPreview != 500 {
		t.Errorf("expected ContentPreview=500, got %d", cfg.Retrieve.ContentPreview)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("expected Temperature=0.3, got %f", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 1500 {
		t.Errorf("expected MaxTokens=1500, got %d", cfg.LLM.MaxTokens)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "kb.yaml")

	content := `
retrieve:
  top_k: 10
  cache_ttl: 90s
embedding:
  provider: hash
  dimension: 512
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.CacheTTL != 90*time.Second {
		t.Errorf("expected CacheTTL=90s, got %v", cfg.Retrieve.CacheTTL)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimension != 512 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", cfg.LLM.Provider)
	}
	if cfg.Retrieve.JudgeCandidates != 3 {
		t.Errorf("unset keys should keep defaults, got JudgeCandidates=%d", cfg.Retrieve.JudgeCandidates)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "kb.yaml")
	if err := os.WriteFile(configPath, []byte("retrieve: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".kb"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".kb", "config.yaml")

	content := `
retrieve:
  judge_candidates: 4
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.JudgeCandidates != 4 {
		t.Errorf("expected JudgeCandidates=4, got %d", cfg.Retrieve.JudgeCandidates)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KB_TOP_K", "7")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KB_LLM_MODEL", "gpt-4o")
	t.Setenv("KB_MIN_RELEVANCE", "not-a-number")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Retrieve.TopK != 7 {
		t.Errorf("expected TopK=7, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.Retrieve.MinRelevance != 0 {
		t.Errorf("invalid number should keep default, got %f", cfg.Retrieve.MinRelevance)
	}
}

func TestApplyEnv_MockData(t *testing.T) {
	t.Setenv("USE_MOCK_DATA", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Embedding.Provider != "hash" {
		t.Errorf("expected hash embedder, got %s", cfg.Embedding.Provider)
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("expected mock llm, got %s", cfg.LLM.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top_k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"zero judge candidates", func(c *Config) { c.Retrieve.JudgeCandidates = 0 }},
		{"min relevance above one", func(c *Config) { c.Retrieve.MinRelevance = 1.5 }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "voyage" }},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty db path", func(c *Config) { c.Knowledge.DBPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()
	path := cfg.DBPath("/home/user/kb")
	expected := filepath.Join("/home/user/kb", ".kb", "kb.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Knowledge.DBPath = "/var/lib/kb.db"
	if got := cfg.DBPath("/home/user/kb"); got != "/var/lib/kb.db" {
		t.Errorf("absolute path should be kept, got %s", got)
	}
}
