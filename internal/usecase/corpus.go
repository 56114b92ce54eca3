package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// CorpusLoader moves a stored corpus into a KnowledgeRetriever, re-embedding
// it when the stored vectors came from a different embedder.
type CorpusLoader struct {
	store     port.CorpusStore
	embedder  port.Embedder
	retriever *KnowledgeRetriever
	logger    *zap.Logger
}

func NewCorpusLoader(store port.CorpusStore, embedder port.Embedder, retriever *KnowledgeRetriever, logger *zap.Logger) *CorpusLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusLoader{
		store:     store,
		embedder:  embedder,
		retriever: retriever,
		logger:    logger,
	}
}

// Load reads the stored corpus and publishes it to the retriever. It reports
// whether the vectors had to be recomputed.
func (l *CorpusLoader) Load(ctx context.Context) (bool, error) {
	fingerprint := Fingerprint(l.embedder)

	rebuild, reason, err := l.store.NeedsRebuild(fingerprint)
	if err != nil {
		return false, fmt.Errorf("failed to check corpus schema: %w", err)
	}

	articles, vectors, err := l.store.LoadCorpus()
	if err != nil {
		return false, fmt.Errorf("failed to load corpus: %w", err)
	}

	if !rebuild && len(vectors) > 0 && len(vectors[0]) != l.embedder.Dimension() {
		rebuild, reason = true, "stored vector dimension differs from embedder"
	}

	if rebuild && len(articles) > 0 {
		l.logger.Info("re-embedding stored corpus",
			zap.String("reason", reason),
			zap.Int("articles", len(articles)),
			zap.String("model", l.embedder.ModelName()))

		vectors, err = l.reembed(ctx, articles)
		if err != nil {
			return false, err
		}
		if err := l.store.SaveCorpus(articles, vectors, l.embedder.ModelName()); err != nil {
			return false, fmt.Errorf("failed to save corpus: %w", err)
		}
		if err := l.store.Migrate(fingerprint); err != nil {
			return false, fmt.Errorf("failed to record schema: %w", err)
		}
	}

	if err := l.retriever.LoadEmbedded(articles, vectors); err != nil {
		return false, err
	}
	return rebuild && len(articles) > 0, nil
}

func (l *CorpusLoader) reembed(ctx context.Context, articles []domain.Article) ([][]float32, error) {
	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.CorpusText()
	}
	vectors, err := l.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if err := checkDimension(vectors, l.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}
	return vectors, nil
}
