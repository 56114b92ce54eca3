package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"supportkb/config"
	"supportkb/internal/adapter/cache"
	"supportkb/internal/adapter/embedding"
	"supportkb/internal/adapter/judge"
	"supportkb/internal/adapter/llm"
	"supportkb/internal/adapter/store"
	"supportkb/internal/port"
	"supportkb/internal/usecase"
)

// newEmbedder builds the configured embedder behind an in-memory cache.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (port.Embedder, error) {
	var inner port.Embedder
	switch cfg.Embedding.Provider {
	case "hash":
		inner = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimension:  cfg.Embedding.Dimension,
			BatchSize:  cfg.Embedding.BatchSize,
			MaxRetries: cfg.Embedding.MaxRetries,
			RetryDelay: cfg.Embedding.RetryDelay,
			Timeout:    cfg.Embedding.Timeout,
		}, logger.Named("embedding"))
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		inner = e
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
	return embedding.NewCachedEmbedder(inner, 0), nil
}

// embeddingFingerprint identifies the configured embedding space without
// constructing a client, so it needs no API key.
func embeddingFingerprint(cfg *config.Config) (string, error) {
	switch cfg.Embedding.Provider {
	case "hash":
		e := embedding.NewHashEmbedder(cfg.Embedding.Dimension)
		return store.EmbeddingFingerprint(e.ModelName(), e.Dimension()), nil
	case "openai":
		dim, _ := embedding.ResolveDimension(cfg.Embedding.Model, cfg.Embedding.Dimension)
		return store.EmbeddingFingerprint(cfg.Embedding.Model, dim), nil
	default:
		return "", fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newJudge builds the judgment stage for the configured LLM provider.
func newJudge(cfg *config.Config, logger *zap.Logger) (port.Judge, error) {
	clientCfg := llm.ClientConfig{
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}

	switch cfg.LLM.Provider {
	case "mock":
		return judge.NewOffline(), nil
	case "openai":
	case "anthropic":
		if clientCfg.BaseURL == "" {
			clientCfg.BaseURL = llm.AnthropicBaseURL
		}
		if clientCfg.Model == "" || strings.HasPrefix(clientCfg.Model, "gpt-") {
			clientCfg.Model = llm.DefaultAnthropicModel
		}
		if clientCfg.APIKeyEnv == "" || clientCfg.APIKeyEnv == "OPENAI_API_KEY" {
			clientCfg.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}

	client, err := llm.NewOpenAIClient(clientCfg, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return judge.NewLLMJudge(client, cfg.Retrieve.ContentPreview, logger.Named("judge")), nil
}

func newRetriever(cfg *config.Config, embedder port.Embedder, j port.Judge, logger *zap.Logger) *usecase.KnowledgeRetriever {
	return usecase.NewKnowledgeRetriever(embedder, j, usecase.RetrieverOptions{
		TopK:            cfg.Retrieve.TopK,
		JudgeCandidates: cfg.Retrieve.JudgeCandidates,
		MinRelevance:    cfg.Retrieve.MinRelevance,
		Cache:           cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL),
		Logger:          logger.Named("retriever"),
	})
}

// openExistingStore opens the corpus database, failing when nothing was imported yet.
func openExistingStore(cfg *config.Config, dir string) (*store.BoltStore, error) {
	dbPath := cfg.DBPath(dir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no knowledge base found at %s. Run 'kb import' first", dbPath)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return st, nil
}

// loadRetriever opens the stored corpus and loads it into a retriever that
// judges with j. The caller closes the returned store.
func loadRetriever(ctx context.Context, cfg *config.Config, dir string, j port.Judge, logger *zap.Logger) (*usecase.KnowledgeRetriever, *store.BoltStore, error) {
	st, err := openExistingStore(cfg, dir)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	retriever := newRetriever(cfg, embedder, j, logger)
	rebuilt, err := usecase.NewCorpusLoader(st, embedder, retriever, logger.Named("corpus")).Load(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if rebuilt {
		fmt.Fprintf(os.Stderr, "Embedding model changed; stored corpus was re-embedded with %s\n", embedder.ModelName())
	}
	return retriever, st, nil
}
